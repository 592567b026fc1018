package workflow

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// PanicError reports a panic recovered from the redaction stage.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("redaction stage panicked: %v", e.Value)
}

// executor runs blocking stage work on its own goroutine, one task at a time,
// so the worker goroutine only coordinates state.
type executor struct {
	tasks chan func()
	done  chan struct{}
	once  sync.Once
}

func newExecutor() *executor {
	e := &executor{
		tasks: make(chan func(), 1),
		done:  make(chan struct{}),
	}
	go e.loop()
	return e
}

func (e *executor) loop() {
	defer close(e.done)
	for task := range e.tasks {
		task()
	}
}

// run submits fn and waits for it to finish. A panic in fn is returned as a
// *PanicError.
func (e *executor) run(fn func() error) error {
	result := make(chan error, 1)
	e.tasks <- func() {
		result <- callRecovering(fn)
	}
	return <-result
}

func (e *executor) close() {
	e.once.Do(func() {
		close(e.tasks)
	})
	<-e.done
}

func callRecovering(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
