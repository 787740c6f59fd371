package main

import (
	"time"

	exfetch "github.com/alnah/go-exfetch"
	"github.com/alnah/go-exfetch/internal/console"
)

// progress prints per-item lines for the fetch and convert stages.
type progress struct {
	out console.Printer
}

// Compile-time interface implementation check.
var _ exfetch.Observer = progress{}

func (p progress) ItemStarted(stage exfetch.Stage, name string) {
	switch stage {
	case exfetch.StageFetch:
		p.out.Info("Downloading %s", name)
	case exfetch.StageConvert:
		p.out.Debug("Converting %s", name)
	}
}

func (p progress) ItemDone(stage exfetch.Stage, r exfetch.Result) {
	if r.Err != nil {
		if stage == exfetch.StageConvert {
			p.out.Warn("%v", r.Err)
		} else {
			p.out.Error("%v", r.Err)
		}
		return
	}
	p.out.Debug("%s -> %s (%v)", r.Name, r.Path, r.Duration.Round(time.Millisecond))
}
