// Copyright 2014 The go-ethereum Authors
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

// Package event adapts the teacher's event.Feed/Subscription pub-sub
// primitive for internal use: Node uses it to notify any number of
// subscribers of peer add/drop events without holding the peer-table lock
// while doing so.
package event

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Feed implements one-to-many subscription. Values sent to a Feed are
// delivered to every channel registered via Subscribe. Send waits for all
// live subscribers to receive or unsubscribe, so a subscriber that stops
// receiving blocks Send indefinitely.
type Feed struct {
	once      sync.Once
	sendLock  chan struct{} // sendLock has a one-element buffer and is empty while held
	removeSub chan interface{}
	sendCases caseList

	mu     sync.Mutex
	typ    reflect.Type
	inbox  caseList
}

func (f *Feed) init(elemtype reflect.Type) {
	f.typ = elemtype
	f.sendLock = make(chan struct{}, 1)
	f.sendLock <- struct{}{}
	f.removeSub = make(chan interface{})
	f.sendCases = caseList{{Chan: reflect.ValueOf(f.removeSub), Dir: reflect.SelectRecv}}
}

// Subscribe adds a channel to the feed. Future sends on the feed will be
// delivered on the channel until the subscription is canceled.
func (f *Feed) Subscribe(channel interface{}) (Subscription, error) {
	chanval := reflect.ValueOf(channel)
	chantyp := chanval.Type()
	if chantyp.Kind() != reflect.Chan || chantyp.ChanDir()&reflect.SendDir == 0 {
		return nil, errors.New("event: Subscribe argument does not have sendable channel type")
	}
	sub := &feedSub{feed: f, channel: chanval, err: make(chan error, 1)}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.once.Do(func() { f.init(chantyp.Elem()) })
	if f.typ != chantyp.Elem() {
		return nil, fmt.Errorf("event: subscribe channel type mismatch: got %s, want %s", chantyp, reflect.ChanOf(reflect.BothDir, f.typ))
	}
	cas := reflect.SelectCase{Dir: reflect.SelectSend, Chan: chanval}
	f.inbox = append(f.inbox, cas)
	return sub, nil
}

type feedSub struct {
	feed    *Feed
	channel reflect.Value
	errOnce sync.Once
	err     chan error
}

func (sub *feedSub) Unsubscribe() {
	sub.errOnce.Do(func() {
		sub.feed.remove(sub)
		close(sub.err)
	})
}

func (sub *feedSub) Err() <-chan error {
	return sub.err
}

func (f *Feed) remove(sub *feedSub) {
	ch := sub.channel.Interface()
	f.mu.Lock()
	index := f.inbox.find(ch)
	if index != -1 {
		f.inbox = f.inbox.delete(index)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	select {
	case f.removeSub <- ch:
	case <-f.sendLock:
		f.sendCases = f.sendCases.delete(f.sendCases.find(ch))
		f.sendLock <- struct{}{}
	}
}

// Send delivers v to all subscribed channels. It returns the number of
// subscribers that the value was sent to.
func (f *Feed) Send(value interface{}) (nsent int) {
	rvalue := reflect.ValueOf(value)

	f.mu.Lock()
	f.once.Do(func() { f.init(rvalue.Type()) })
	f.mu.Unlock()

	<-f.sendLock

	f.mu.Lock()
	f.sendCases = append(f.sendCases, f.inbox...)
	f.inbox = nil
	f.mu.Unlock()

	if f.typ != rvalue.Type() {
		f.sendLock <- struct{}{}
		panic(fmt.Sprintf("event: Send got value of type %s, want %s", rvalue.Type(), f.typ))
	}
	for i := 1; i < len(f.sendCases); i++ {
		f.sendCases[i].Send = rvalue
	}

	cases := f.sendCases
	for {
		for i := 1; i < len(cases); i++ {
			if cases[i].Chan.TrySend(rvalue) {
				nsent++
				cases = cases.deactivate(i)
				i--
			}
		}
		if len(cases) == 1 {
			break
		}
		chosen, recv, _ := reflect.Select(cases)
		if chosen == 0 {
			index := f.sendCases.find(recv.Interface())
			f.sendCases = f.sendCases.delete(index)
			if index >= 0 && index < len(cases) {
				cases = f.sendCases[:len(cases)-1]
			}
			continue
		}
		cases = cases.deactivate(chosen)
		nsent++
	}

	for i := 1; i < len(f.sendCases); i++ {
		f.sendCases[i].Send = reflect.Value{}
	}
	f.sendLock <- struct{}{}
	return nsent
}

type caseList []reflect.SelectCase

func (cs caseList) find(channel interface{}) int {
	for i, cas := range cs {
		if cas.Chan.Interface() == channel {
			return i
		}
	}
	return -1
}

func (cs caseList) delete(index int) caseList {
	return append(cs[:index], cs[index+1:]...)
}

func (cs caseList) deactivate(index int) caseList {
	last := len(cs) - 1
	cs[index], cs[last] = cs[last], cs[index]
	return cs[:last]
}
