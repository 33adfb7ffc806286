//go:build unix

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gogpu/lensing"
)

// handleSignals saves on SIGUSR1 and restarts on SIGHUP until ctx is done
// or the render loop exits.
func handleSignals(ctx context.Context, done <-chan struct{}, d *lensing.Driver) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1, syscall.SIGHUP)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case s := <-sig:
			switch s {
			case syscall.SIGUSR1:
				if path, err := d.Save(); err == nil {
					lensing.Logger().Info("saved on request", "path", path)
				}
			case syscall.SIGHUP:
				lensing.Logger().Info("restart requested")
				d.Restart()
			}
		}
	}
}
