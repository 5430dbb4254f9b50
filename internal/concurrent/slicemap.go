// Package concurrent provides small fan-out helpers (one goroutine per
// element, no concurrency limit) used by the
// reconciler and merge engine wherever the spec calls for independent forge
// mutations to be issued concurrently (push's second PR-body pass, the
// dependent-PR rebase during merge).
package concurrent

import "sync"

// SliceMap applies fn to every element of in concurrently and returns the
// results in the same order. If any fn call returns an error, the error of
// the highest-indexed failing element is returned; all calls still run to
// completion.
func SliceMap[I any, O any](in []I, fn func(I) (O, error)) ([]O, error) {
	return SliceMapWithIndex(in, func(_ int, i I) (O, error) {
		return fn(i)
	})
}

// SliceMapWithIndex is SliceMap with the element's index also passed to fn.
func SliceMapWithIndex[I any, O any](in []I, fn func(int, I) (O, error)) ([]O, error) {
	out := make([]O, len(in))
	errs := make([]error, len(in))

	wg := new(sync.WaitGroup)
	wg.Add(len(in))
	for i := range in {
		go func(i int) {
			defer wg.Done()
			o, err := fn(i, in[i])
			out[i] = o
			errs[i] = err
		}(i)
	}
	wg.Wait()

	var err error
	for _, e := range errs {
		if e != nil {
			err = e
		}
	}
	return out, err
}
