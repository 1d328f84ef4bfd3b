// Copyright 2016 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package event

// Subscription represents a stream of events. The carrier of the events is
// typically a channel, but isn't part of the interface.
//
// Subscriptions can fail while in progress. The error channel returned by
// Err() receives a single value before being closed, indicating why the
// subscription failed.
type Subscription interface {
	// Err returns a channel delivering the subscription's termination
	// error, then closes. A successful unsubscribe delivers no error.
	Err() <-chan error
	// Unsubscribe cancels the sending of events to the channel given at
	// Subscribe time. It can safely be called more than once.
	Unsubscribe()
}
