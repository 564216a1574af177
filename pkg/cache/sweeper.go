package cache

import "time"

// StartSweeper launches a background goroutine that calls SweepExpired at the
// given interval, until StopSweeper is called.
func (c *Cache[K, V]) StartSweeper(interval time.Duration) {
	c.sweepStop = make(chan bool)
	go c.sweeperThread(interval, c.sweepStop)
}

func (c *Cache[K, V]) StopSweeper() {
	if c.sweepStop != nil {
		close(c.sweepStop)
		c.sweepStop = nil
	}
}

// The stop channel is a parameter so the goroutine never reads the field
// that StopSweeper mutates.
func (c *Cache[K, V]) sweeperThread(interval time.Duration, stop chan bool) {
	for {
		select {
		case <-stop:
			return
		case <-time.After(interval):
			if n := c.SweepExpired(); n != 0 && c.log != nil {
				c.log.Debugf("Swept %v expired cache entries", n)
			}
		}
	}
}
