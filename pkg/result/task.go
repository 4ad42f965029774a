package result

import "context"

// Task is a deferred computation. Nothing happens until it is run; each run
// performs the work again.
type Task[T any] func(ctx context.Context) Result[T]

// Run executes the task on the calling goroutine.
func (t Task[T]) Run(ctx context.Context) Result[T] {
	if t == nil {
		return Err[T](ErrNilTask)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return t(ctx)
}

// Start runs the task on its own goroutine and returns a handle to its outcome.
func (t Task[T]) Start(ctx context.Context) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.res = t.Run(ctx)
	}()
	return f
}

// Of returns a task that always succeeds with v.
func Of[T any](v T) Task[T] {
	return func(context.Context) Result[T] { return Ok(v) }
}

// Fail returns a task that always fails with err.
func Fail[T any](err error) Task[T] {
	return func(context.Context) Result[T] { return Err[T](err) }
}

// FromFunc adapts a conventional (value, error) function into a Task.
func FromFunc[T any](fn func(ctx context.Context) (T, error)) Task[T] {
	return func(ctx context.Context) Result[T] {
		v, err := fn(ctx)
		if err != nil {
			return Err[T](err)
		}
		return Ok(v)
	}
}

// MapTask composes fn over the eventual success without running t.
func MapTask[A, B any](t Task[A], fn func(A) B) Task[B] {
	return func(ctx context.Context) Result[B] {
		return Map(t.Run(ctx), fn)
	}
}

// ChainTask sequences a second task that depends on the first one's value.
func ChainTask[A, B any](t Task[A], fn func(A) Task[B]) Task[B] {
	return func(ctx context.Context) Result[B] {
		r := t.Run(ctx)
		if r.err != nil {
			return Result[B]{err: r.err}
		}
		return fn(r.value).Run(ctx)
	}
}

// MapSome maps the present value of an optional task result.
func MapSome[A, B any](t Task[Option[A]], fn func(A) B) Task[Option[B]] {
	return MapTask(t, func(o Option[A]) Option[B] {
		return MapOption(o, fn)
	})
}

// Future is the handle of a started Task.
type Future[T any] struct {
	done chan struct{}
	res  Result[T]
}

// Done is closed once the outcome is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task finished and returns its outcome.
func (f *Future[T]) Wait() Result[T] {
	<-f.done
	return f.res
}
