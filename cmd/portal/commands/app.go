package commands

import (
	"github.com/agentportal/portal/internal/api"
	"github.com/agentportal/portal/internal/auth"
	"github.com/agentportal/portal/internal/config"
	"github.com/agentportal/portal/internal/event"
	"github.com/agentportal/portal/internal/history"
	"github.com/agentportal/portal/internal/kvstore"
	"github.com/agentportal/portal/internal/session"
	"github.com/agentportal/portal/internal/task"
)

// app wires the client's object graph: key/value store, credential store,
// backend client, task engine, and the session orchestrator on top.
type app struct {
	cfg      *config.Config
	bus      *event.Bus
	kv       *kvstore.Store
	auth     *auth.Store
	client   *api.Client
	engine   *task.Engine
	orch     *session.Orchestrator
	renderer *Renderer
}

func newApp(cfg *config.Config) *app {
	bus := event.NewBus()
	kv := kvstore.New(cfg.StateDir)
	creds := auth.NewStore(kv, newTerminalPrompter())
	client := api.NewClient(cfg.APIURL, creds)

	engine := task.NewEngine(client, bus)
	engine.PollInterval = cfg.PollInterval
	engine.ProgressInterval = cfg.ProgressInterval
	engine.SubmitTimeout = cfg.SubmitTimeout

	cache := history.NewCache(kv)
	orch := session.New(engine, client, creds, cache, kv, bus)
	orch.Restore()

	return &app{
		cfg:      cfg,
		bus:      bus,
		kv:       kv,
		auth:     creds,
		client:   client,
		engine:   engine,
		orch:     orch,
		renderer: NewRenderer(cfg),
	}
}

func (a *app) Close() {
	// Let in-flight task cleanup finish before the process goes away.
	a.engine.Wait()
	a.bus.Close()
}
