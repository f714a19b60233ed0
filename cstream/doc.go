// Package cstream bridges a [cocoon.Source] to readers on other goroutines.
//
// The [Stream] type is a singly linked list with one writer and many readers.
// The writer is an observer running on the relay's scheduler goroutine;
// readers follow the list at their own pace by waiting on each node's Ready channel,
// without ever touching the relay directly.
package cstream
