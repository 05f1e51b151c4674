package object

// HashString computes the FNV-1a hash used for string interning and table
// lookups, matching the algorithm the reference compiler's table.c uses.
func HashString(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// String is an immutable, interned UTF-8 byte sequence. Two textually equal
// strings always share one String object: see VM.InternString in the vm
// package, which looks candidates up with Table.FindString. The
// hash is precomputed at construction so table lookups never re-hash.
type String struct {
	Header
	chars string
	hash  uint32
}

var _ Object = (*String)(nil)

// NewString allocates a String object. Outside of this package, only a
// VM's intern path (InternString) should call this — calling it directly
// elsewhere breaks the interning invariant that textually equal strings
// share one object.
func NewString(s string) *String {
	return &String{Header: newHeader(KindString), chars: s, hash: HashString(s)}
}

func (s *String) Value() string  { return s.chars }
func (s *String) Len() int       { return len(s.chars) }
func (s *String) Hash() uint32   { return s.hash }
func (s *String) Trace(func(Value)) {}
func (s *String) Display() string  { return s.chars }
func (s *String) TypeName() string { return "string" }
