package services

import "github.com/codeready-toolchain/dialogreplay/pkg/models"

// Observers fans every notification out to each observer in order.
type Observers []Observer

// ReplayStarted implements Observer.
func (o Observers) ReplayStarted() {
	for _, obs := range o {
		obs.ReplayStarted()
	}
}

// RunStarted implements Observer.
func (o Observers) RunStarted(name string) {
	for _, obs := range o {
		obs.RunStarted(name)
	}
}

// RunFinished implements Observer.
func (o Observers) RunFinished(name string, status models.RunStatus, reason string) {
	for _, obs := range o {
		obs.RunFinished(name, status, reason)
	}
}

// RecordingSaved implements Observer.
func (o Observers) RecordingSaved() {
	for _, obs := range o {
		obs.RecordingSaved()
	}
}
