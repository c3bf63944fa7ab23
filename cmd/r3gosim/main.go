// Command r3gosim runs a small demonstration kernel configuration against
// the host port, so the kernel packages can be exercised end to end on an
// ordinary machine instead of target hardware.
package main

import (
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs" // right-sizes GOMAXPROCS under a container cgroup quota

	"github.com/r3go-kernel/r3go/kernel"
	"github.com/r3go-kernel/r3go/kernel/hostport"
	"github.com/r3go-kernel/r3go/kernelcfg"
	"github.com/r3go-kernel/r3go/klog"
	"github.com/r3go-kernel/r3go/timeout"
	"github.com/r3go-kernel/r3go/wait"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "r3gosim:", err)
		os.Exit(1)
	}
}

func run() error {
	klog.SetLogger(klog.NewDefaultLogger(klog.LevelDebug, os.Stdout))

	p, err := hostport.New(0)
	if err != nil {
		return err
	}
	defer p.Close()

	b, err := kernel.NewBuilder(kernelcfg.WithMaxPriorities(16))
	if err != nil {
		return err
	}
	b.WithPort(p)

	token := b.Semaphore(0, 1, wait.FIFO)

	b.Task(1, true, func(k *kernel.Kernel, id int) {
		klog.Log(klog.LevelDebug, "demo", "producer starting", 0, uint32(id), nil)
		for i := 0; i < 3; i++ {
			if err := k.Sleep(id, timeout.DurationFromMillis(10)); err != nil {
				klog.Log(klog.LevelError, "demo", "producer sleep failed", 0, uint32(id), err)
				return
			}
			klog.Log(klog.LevelDebug, "demo", fmt.Sprintf("producer signaling token %d", i), uint32(token), uint32(id), nil)
			if err := k.SignalSemaphore(token, 1); err != nil {
				klog.Log(klog.LevelError, "demo", "producer signal failed", uint32(token), uint32(id), err)
				return
			}
		}
	})

	b.Task(2, true, func(k *kernel.Kernel, id int) {
		klog.Log(klog.LevelDebug, "demo", "consumer starting", 0, uint32(id), nil)
		for i := 0; i < 3; i++ {
			if err := k.WaitSemaphore(id, token, nil); err != nil {
				klog.Log(klog.LevelError, "demo", "consumer wait failed", uint32(token), uint32(id), err)
				return
			}
			klog.Log(klog.LevelDebug, "demo", fmt.Sprintf("consumer consumed token %d", i), uint32(token), uint32(id), nil)
		}
	})

	k, err := b.Build()
	if err != nil {
		return err
	}
	k.Start()
	for i := 0; i < 64; i++ {
		k.RunOnce()
	}
	return nil
}
