package main

// ---------------------------------------------------------------------------
// wiring.go: builds the engine with every scanner and the risk oracle
// ---------------------------------------------------------------------------

import (
	"github.com/docshield/docshield/internal/core"
	"github.com/docshield/docshield/internal/modules/docx"
	"github.com/docshield/docshield/internal/modules/oracle"
	"github.com/docshield/docshield/internal/modules/pdf"
)

// buildEngine creates an engine from cfg and registers the enabled scanners.
// The oracle client is returned so the caller can report its status; it is
// nil when withOracle is false.
func buildEngine(cfg *core.Config, withOracle bool) (*core.Engine, *oracle.Client, error) {
	engine, err := core.NewEngine(cfg)
	if err != nil {
		return nil, nil, err
	}

	scanners := []core.Scanner{
		docx.New(engine.Logger),
		pdf.New(engine.Logger, pdf.LedongthucExtractor{MaxPages: cfg.Scan.MaxPDFPages}),
	}
	if err := engine.Registry.RegisterEnabled(cfg, scanners...); err != nil {
		return nil, nil, err
	}

	if !withOracle {
		return engine, nil, nil
	}
	client := oracle.New(cfg, engine.Logger)
	engine.SetAssessor(client)
	return engine, client, nil
}
