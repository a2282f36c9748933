// recover.go provides the Recover helper for standalone panic capture.
// Use it in HTTP handlers, goroutines, or other code that must not crash.

package faultline

import (
	"context"
	"fmt"
)

// Recover captures an in-flight panic, records it as a fatal event, and
// returns the recovered value. It does NOT re-panic.
//
// Use in defer:
//
//	func handler(ctx context.Context) {
//	    defer faultline.Recover(ctx, client)
//	    // code that might panic
//	}
//
// Or to capture the recovered value:
//
//	func handler(ctx context.Context) (err error) {
//	    defer func() {
//	        if r := faultline.Recover(ctx, client); r != nil {
//	            err = fmt.Errorf("panic: %v", r)
//	        }
//	    }()
//	    // code that might panic
//	}
func Recover(ctx context.Context, client *Client) any {
	r := recover()
	if r == nil {
		return nil
	}
	// Ignore the handle: recovery must not depend on delivery succeeding.
	_ = client.CapturePanic(ctx, r)
	return r
}

// formatRecovered formats a recovered panic value as a string.
func formatRecovered(recovered any) string {
	if recovered == nil {
		return "<nil>"
	}
	if err, ok := recovered.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", recovered)
}
