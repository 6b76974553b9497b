// Package mailbox implements an unbounded multi-producer, single-consumer FIFO.
//
// It is the handoff primitive between goroutines that deliver events (many producers,
// no scheduler) and the single task that consumes them in order. Storage is a ring
// buffer from github.com/eapache/queue guarded by a mutex; a one-slot channel wakes
// the consumer.
//
//	mb := mailbox.New[string]()
//	go func() { _ = mb.Push("a"); _ = mb.Push("b"); mb.Close() }()
//	for {
//		v, err := mb.Pop(ctx)
//		if errors.Is(err, mailbox.ErrClosed) {
//			break
//		}
//		fmt.Println(v)
//	}
package mailbox
