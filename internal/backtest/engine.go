package backtest

import (
	"context"
	"sort"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/schema"
)

// sendBars is the synchronization engine: on each tick it merges the
// earliest pending bar across all symbols, pushes a framed batch to every
// subscribed channel, then blocks on the readiness barrier before the
// next tick. Bars therefore reach every client in strict chronological
// lockstep no matter how many symbols are multiplexed.
func (s *Server) sendBars(ctx context.Context) error {
	for {
		earliest, ok := s.earliestPending()
		if !ok {
			break
		}

		batches := make(map[int][]schema.LiveBarPush)
		for _, symbol := range s.Symbols() {
			pending := s.bars[symbol]
			if len(pending) == 0 || !pending[0].Time.Equal(earliest) {
				continue
			}
			wire := pending[0].Wire()
			for _, sub := range s.subscriptions[symbol] {
				batches[sub.channelKey] = append(batches[sub.channelKey], schema.LiveBarPush{
					Type:      schema.TypeLiveBar,
					RequestID: sub.requestID,
					Exchange:  sub.exchange,
					Symbol:    symbol,
					Bar:       wire,
				})
			}
		}

		touched := make([]int, 0, len(batches))
		for key := range batches {
			touched = append(touched, key)
		}
		sort.Ints(touched)
		for _, key := range touched {
			s.pushBatch(key, batches[key])
		}

		// Pop the consumed front from every symbol that matched.
		for symbol, pending := range s.bars {
			if len(pending) > 0 && pending[0].Time.Equal(earliest) {
				s.bars[symbol] = pending[1:]
			}
		}
		s.cfg.Metrics.IncTick()

		// Barrier: a channel that received bars must confirm before any
		// channel gets the next tick. Channels outside this tick's batch
		// saw nothing and keep their standing readiness.
		for _, key := range touched {
			delete(s.ready, key)
		}
		if err := s.listenUntilReady(ctx, touched); err != nil {
			return err
		}
	}
	return s.finish()
}

// earliestPending returns the minimum front-bar timestamp over all
// symbols with pending bars.
func (s *Server) earliestPending() (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, pending := range s.bars {
		if len(pending) == 0 {
			continue
		}
		if !found || pending[0].Time.Before(earliest) {
			earliest = pending[0].Time
			found = true
		}
	}
	return earliest, found
}

// pushBatch delivers one tick to one channel with the three-part
// framing: a prepare marker, each bar, then an end marker. The markers
// let the client buffer the whole tick before processing it in bulk.
func (s *Server) pushBatch(key int, batch []schema.LiveBarPush) {
	statusID := s.ready[key]
	s.reply(key, schema.Marker{Type: schema.TypePrepareLiveBars, RequestID: statusID})
	for _, push := range batch {
		s.reply(key, push)
	}
	s.reply(key, schema.Marker{Type: schema.TypeEndOfLiveBars, RequestID: statusID})
	s.cfg.Metrics.AddBars(uint64(len(batch)))
}

// finish tells every client the session is over and closes all channels.
func (s *Server) finish() error {
	logs.Info("all bars sent, shutting down")
	for _, key := range s.keys {
		s.reply(key, schema.Marker{Type: schema.TypeServerExit, RequestID: s.ready[key]})
		s.channels[key].Close()
	}
	return nil
}
