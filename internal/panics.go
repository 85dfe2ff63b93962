package internal

import (
	"fmt"
	"runtime/debug"
)

// Panic is a recovered panic value along with the stack it was raised on.
type Panic struct {
	Value any
	Stack []byte
}

func (p *Panic) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

func (p *Panic) Unwrap() error {
	if err, ok := p.Value.(error); ok {
		return err
	}

	return nil
}

// Try runs f and returns the panic it raised, if any.
func Try(f func()) (p *Panic) {
	ok := false
	defer func() {
		if ok {
			return
		}

		v := recover()
		if v == nil {
			return // runtime.Goexit
		}
		p = &Panic{Value: v, Stack: debug.Stack()}
	}()

	f()
	ok = true

	return nil
}
