package saver

import "sync"

// worker runs submissions one at a time, in order, on its own goroutine.
type worker struct {
	mu      sync.Mutex
	queue   []*submission
	wake    chan struct{}
	quit    chan struct{}
	stopped chan struct{}
	run     func(*submission)
}

func startWorker(run func(*submission)) *worker {
	w := &worker{
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		run:     run,
	}
	go w.loop()
	return w
}

func (w *worker) submit(sub *submission) {
	w.mu.Lock()
	w.queue = append(w.queue, sub)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *worker) next() (*submission, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return nil, false
	}
	sub := w.queue[0]
	w.queue = w.queue[1:]
	return sub, true
}

func (w *worker) loop() {
	defer close(w.stopped)
	for {
		if sub, ok := w.next(); ok {
			w.run(sub)
			continue
		}
		select {
		case <-w.wake:
		case <-w.quit:
			return
		}
	}
}

// stop ends the goroutine once it is idle.
func (w *worker) stop() {
	close(w.quit)
	<-w.stopped
}
