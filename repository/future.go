/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"context"

	"github.com/sourcegraph/conc/panics"
)

// Future is the pending result of an asynchronous repository operation.
type Future[R any] struct {
	done  chan struct{}
	value R
	err   error
}

// Go runs fn in a new goroutine. A panic in fn resolves the future with an
// error carrying the panic value and stack.
func Go[R any](fn func() (R, error)) *Future[R] {
	f := &Future[R]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		var pc panics.Catcher
		pc.Try(func() { f.value, f.err = fn() })
		if r := pc.Recovered(); r != nil {
			var zero R
			f.value, f.err = zero, r.AsError()
		}
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[R]) Done() <-chan struct{} { return f.done }

// Await blocks until the operation completes or ctx is done. Giving up on
// ctx does not cancel the operation.
func (f *Future[R]) Await(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// Get blocks until the operation completes.
func (f *Future[R]) Get() (R, error) {
	<-f.done
	return f.value, f.err
}
