package ocr

import (
	"context"
	"fmt"
	"strings"
)

type Engine interface {
	Name() string
	GetModel() string
	Process(ctx context.Context, req Request) (Response, error)
}

type Engines struct {
	Mistral Engine
	Gemini  Engine
}

func (e *Engines) GetEngine(name string) (Engine, error) {
	var eng Engine
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mistral":
		eng = e.Mistral
	case "gemini":
		eng = e.Gemini
	default:
		return nil, fmt.Errorf("unknown engine %q; use 'mistral' or 'gemini'", name)
	}
	if eng == nil {
		return nil, fmt.Errorf("engine %q is not configured", name)
	}
	return eng, nil
}
