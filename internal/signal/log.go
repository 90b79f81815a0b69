package signal

import (
	"time"

	"github.com/yanun0323/logs"

	"main/internal/trade"
)

// Log writes every trade event to the structured log.
type Log struct{}

// NewLog creates a logging signaller.
func NewLog() *Log { return &Log{} }

func (*Log) Initialise() error { return nil }

func (*Log) StartOrder(symbol string, t *trade.Trade) {
	logs.Infof("start order: %s action %d shares %d at reference %.4f", symbol, t.Action, t.Shares, t.ReferencePrice)
}

func (*Log) CloseOrder(symbol string, t *trade.Trade) {
	logs.Infof("close order: %s action %d shares %d opened at %.4f", symbol, t.Action, t.Shares, t.OpenPrice)
}

func (*Log) CloseAll(symbol string, at time.Time) {
	logs.Infof("close all positions: %s at %s", symbol, at.Format(time.DateTime))
}

func (*Log) Flush() {}
