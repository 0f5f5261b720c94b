package watch

import (
	"fmt"
	"io"
	"sync"

	"github.com/pricewatch/pricewatch/models"
)

// Notifier emits a user-visible alert. Delivery is best-effort: a
// notifier error is logged by the runner, never fatal.
type Notifier interface {
	Alert(event models.AlertEvent) error
}

// ConsoleNotifier writes human-readable alert lines to an output stream.
type ConsoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleNotifier returns a notifier writing to out.
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

// Alert prints one alert line.
func (n *ConsoleNotifier) Alert(event models.AlertEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if event.Previous != nil {
		_, err := fmt.Fprintf(n.out, "ALERT: %s price %s <= target %s (was %s)\n",
			event.ProductName, event.Price, event.TargetPrice, *event.Previous)
		return err
	}
	_, err := fmt.Fprintf(n.out, "ALERT: %s price %s <= target %s\n",
		event.ProductName, event.Price, event.TargetPrice)
	return err
}
