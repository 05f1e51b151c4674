package vm_test

import (
	"bytes"
	"testing"

	"github.com/mna/lox/config"
	"github.com/mna/lox/vm"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, src string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	m := vm.New(config.Default())
	m.Stdout = &stdout
	m.Stderr = &stderr
	_, err := m.Interpret(src)
	return stdout.String(), stderr.String(), err
}

func TestArithmeticAndPrint(t *testing.T) {
	out, _, err := run(t, `print 1 + 2 * 3;`)
	require.NoError(t, err)
	require.Equal(t, "7\n", out)
}

func TestStringConcatenation(t *testing.T) {
	out, _, err := run(t, `print "foo" + "bar";`)
	require.NoError(t, err)
	require.Equal(t, "foobar\n", out)
}

func TestGlobalVariables(t *testing.T) {
	out, _, err := run(t, `
		var a = 1;
		var b = 2;
		a = a + b;
		print a;
	`)
	require.NoError(t, err)
	require.Equal(t, "3\n", out)
}

func TestUndefinedGlobalRead(t *testing.T) {
	_, _, err := run(t, `print missing;`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Undefined variable 'missing'.")
}

func TestUndefinedGlobalAssign(t *testing.T) {
	_, _, err := run(t, `missing = 1;`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Undefined variable 'missing'.")
}

func TestBlockScopingAndShadowing(t *testing.T) {
	out, _, err := run(t, `
		var a = "outer";
		{
			var a = "inner";
			print a;
		}
		print a;
	`)
	require.NoError(t, err)
	require.Equal(t, "inner\nouter\n", out)
}

func TestIfElse(t *testing.T) {
	out, _, err := run(t, `
		if (1 < 2) print "yes"; else print "no";
	`)
	require.NoError(t, err)
	require.Equal(t, "yes\n", out)
}

func TestWhileLoop(t *testing.T) {
	out, _, err := run(t, `
		var i = 0;
		var sum = 0;
		while (i < 5) {
			sum = sum + i;
			i = i + 1;
		}
		print sum;
	`)
	require.NoError(t, err)
	require.Equal(t, "10\n", out)
}

func TestForLoop(t *testing.T) {
	out, _, err := run(t, `
		var sum = 0;
		for (var i = 0; i < 5; i = i + 1) {
			sum = sum + i;
		}
		print sum;
	`)
	require.NoError(t, err)
	require.Equal(t, "10\n", out)
}

func TestFunctionCallAndReturn(t *testing.T) {
	out, _, err := run(t, `
		fun add(a, b) {
			return a + b;
		}
		print add(2, 3);
	`)
	require.NoError(t, err)
	require.Equal(t, "5\n", out)
}

func TestRecursion(t *testing.T) {
	out, _, err := run(t, `
		fun fib(n) {
			if (n < 2) return n;
			return fib(n - 1) + fib(n - 2);
		}
		print fib(10);
	`)
	require.NoError(t, err)
	require.Equal(t, "55\n", out)
}

func TestClosureCapturesUpvalue(t *testing.T) {
	out, _, err := run(t, `
		fun makeCounter() {
			var count = 0;
			fun counter() {
				count = count + 1;
				return count;
			}
			return counter;
		}
		var counter = makeCounter();
		print counter();
		print counter();
		print counter();
	`)
	require.NoError(t, err)
	require.Equal(t, "1\n2\n3\n", out)
}

func TestClosuresAreIndependent(t *testing.T) {
	out, _, err := run(t, `
		fun makeCounter() {
			var count = 0;
			fun counter() {
				count = count + 1;
				return count;
			}
			return counter;
		}
		var a = makeCounter();
		var b = makeCounter();
		a();
		a();
		print a();
		print b();
	`)
	require.NoError(t, err)
	require.Equal(t, "3\n1\n", out)
}

func TestStringInterningIdentity(t *testing.T) {
	out, _, err := run(t, `
		var a = "hello";
		var b = "hel" + "lo";
		print a == b;
	`)
	require.NoError(t, err)
	require.Equal(t, "true\n", out)
}

func TestFunctionResultsCombineInExpression(t *testing.T) {
	m := vm.New(config.Default())
	var stdout bytes.Buffer
	m.Stdout = &stdout
	_, err := m.Interpret(`
		fun f() { return 1; }
		var x = f() + f();
		print x;
	`)
	require.NoError(t, err)
	require.Equal(t, "2\n", stdout.String())
}

func TestClassInstantiationAndFields(t *testing.T) {
	out, _, err := run(t, `
		class Point {}
		var p = Point();
		p.x = 1;
		p.y = 2;
		print p.x + p.y;
	`)
	require.NoError(t, err)
	require.Equal(t, "3\n", out)
}

func TestClassMethodsAndThis(t *testing.T) {
	out, _, err := run(t, `
		class Counter {
			init() {
				this.value = 0;
			}
			increment() {
				this.value = this.value + 1;
				return this.value;
			}
		}
		var c = Counter();
		c.increment();
		print c.increment();
	`)
	require.NoError(t, err)
	require.Equal(t, "2\n", out)
}

func TestClassInheritanceAndSuper(t *testing.T) {
	out, _, err := run(t, `
		class Animal {
			speak() {
				return "...";
			}
			describe() {
				return "An animal says " + this.speak();
			}
		}
		class Dog < Animal {
			speak() {
				return "Woof";
			}
			describe() {
				return super.describe() + "!";
			}
		}
		print Dog().describe();
	`)
	require.NoError(t, err)
	require.Equal(t, "An animal says Woof!\n", out)
}

func TestBoundMethodAsValue(t *testing.T) {
	out, _, err := run(t, `
		class Greeter {
			init(name) {
				this.name = name;
			}
			greet() {
				return "hi " + this.name;
			}
		}
		var g = Greeter("ada");
		var m = g.greet;
		print m();
	`)
	require.NoError(t, err)
	require.Equal(t, "hi ada\n", out)
}

func TestRuntimeErrorIncludesStackTrace(t *testing.T) {
	_, _, err := run(t, `
		fun a() { b(); }
		fun b() { c(); }
		fun c() { c_is_undefined(); }
		a();
	`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Undefined variable 'c_is_undefined'.")
	require.Contains(t, err.Error(), "in c()")
	require.Contains(t, err.Error(), "in b()")
	require.Contains(t, err.Error(), "in a()")
	require.Contains(t, err.Error(), "in script")
}

func TestNativeClockReturnsNumber(t *testing.T) {
	out, _, err := run(t, `print clock() > 0;`)
	require.NoError(t, err)
	require.Equal(t, "true\n", out)
}

func TestStressGCKeepsProgramCorrect(t *testing.T) {
	cfg := config.Default()
	cfg.StressGC = true
	var stdout bytes.Buffer
	m := vm.New(cfg)
	m.Stdout = &stdout
	_, err := m.Interpret(`
		fun fib(n) {
			if (n < 2) return n;
			return fib(n - 1) + fib(n - 2);
		}
		print fib(12);
	`)
	require.NoError(t, err)
	require.Equal(t, "144\n", stdout.String())
}

func TestReplStylePersistsGlobalsAcrossInterpretCalls(t *testing.T) {
	var stdout bytes.Buffer
	m := vm.New(config.Default())
	m.Stdout = &stdout
	_, err := m.Interpret(`var x = 10;`)
	require.NoError(t, err)
	_, err = m.Interpret(`print x + 1;`)
	require.NoError(t, err)
	require.Equal(t, "11\n", stdout.String())
}

// TestClosureIsolationAfterRuntimeErrorLeavesUpvalueOpen exercises the REPL
// contract across a call that errors out while a local is still captured by
// an open upvalue: a later, unrelated call must still get its own closure
// over its own local, not one fused with the earlier call's by slot reuse.
func TestClosureIsolationAfterRuntimeErrorLeavesUpvalueOpen(t *testing.T) {
	var stdout, stderr bytes.Buffer
	m := vm.New(config.Default())
	m.Stdout, m.Stderr = &stdout, &stderr

	_, err := m.Interpret(`
		var globalC;
		fun outer() {
			var count = 1;
			fun inner() { return count; }
			globalC = inner;
			count = count + bogus;
		}
		outer();
	`)
	require.Error(t, err)

	_, err = m.Interpret(`
		fun second() {
			var count = 999;
			fun inner2() { return count; }
			return inner2;
		}
		var c2 = second();
		print globalC();
		print c2();
	`)
	require.NoError(t, err)
	require.Equal(t, "1\n999\n", stdout.String())
}
