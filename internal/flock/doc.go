// Package flock provides advisory, cross-process file locks.
//
// Writers of the layout file hold an exclusive lock on a sibling ".lock" file
// while they write and rename the temporary file:
//
//	lock, err := flock.Acquire(ctx, path+".lock", 5*time.Second)
//	if err != nil {
//	    return err
//	}
//	defer lock.Release()
package flock
