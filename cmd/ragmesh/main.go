// Command ragmesh runs the multi-agent document chat pipeline: ingest
// documents into a vector index, then answer questions grounded in them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v2"

	"github.com/vinayprograms/ragmesh/agent"
	"github.com/vinayprograms/ragmesh/bus"
	"github.com/vinayprograms/ragmesh/config"
	"github.com/vinayprograms/ragmesh/embed"
	"github.com/vinayprograms/ragmesh/generation"
	"github.com/vinayprograms/ragmesh/index"
	"github.com/vinayprograms/ragmesh/ingestion"
	"github.com/vinayprograms/ragmesh/llm"
	"github.com/vinayprograms/ragmesh/logging"
	"github.com/vinayprograms/ragmesh/protocol"
	"github.com/vinayprograms/ragmesh/retrieval"
)

func main() {
	app := &cli.App{
		Name:  "ragmesh",
		Usage: "Chat with your documents through a multi-agent RAG pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML config file",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Parse and index documents",
				ArgsUsage: "<file> [<file>...]",
				Action:    ingestCommand,
			},
			{
				Name:   "chat",
				Usage:  "Interactive question answering over ingested documents",
				Action: chatCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Documents to ingest before the chat starts",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// pipeline bundles everything the commands need.
type pipeline struct {
	log         *logging.Logger
	bus         *bus.Bus
	coordinator *agent.Coordinator
	ingestion   *ingestion.Agent
	retrieval   *retrieval.Agent
	cfg         *config.Config
}

// buildPipeline is the composition root: config, logger, bus,
// collaborators, agents, registration.
func buildPipeline(c *cli.Context) (*pipeline, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	level := c.String("log-level")
	if !c.IsSet("log-level") && cfg.Logging.Level != "" {
		level = cfg.Logging.Level
	}
	log := logging.New()
	log.SetLevel(logging.ParseLevel(level))

	b := bus.New(log)

	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	retrievalOpts, err := buildRetrievalOpts(cfg)
	if err != nil {
		return nil, err
	}

	var keywords *index.Text
	if cfg.Index.KeywordPath != "" {
		keywords, err = index.NewText(cfg.Index.KeywordPath)
		if err != nil {
			return nil, err
		}
	}

	coord := agent.NewCoordinator(b, log, agent.WithTimeout(cfg.RequestTimeout()))
	ing := ingestion.New(b, log)
	ret, err := retrieval.New(b, log, keywords, retrievalOpts...)
	if err != nil {
		return nil, err
	}
	gen := generation.New(b, log, provider)

	agent.Register(b, coord)
	agent.Register(b, ing)
	agent.Register(b, ret)
	agent.Register(b, gen)

	return &pipeline{
		log:         log,
		bus:         b,
		coordinator: coord,
		ingestion:   ing,
		retrieval:   ret,
		cfg:         cfg,
	}, nil
}

// buildProvider creates the generation LLM, always wrapped so transport
// failures degrade to a fixed apology instead of breaking the chat.
func buildProvider(cfg *config.Config) (llm.Provider, error) {
	if cfg.LLM.Provider == "mock" {
		return llm.NewMock("No language model is configured; set llm.provider in the config."), nil
	}

	inner, err := llm.New(cfg.LLMProviderConfig())
	if err != nil {
		return nil, err
	}
	return &llm.WithFallback{Provider: inner}, nil
}

func buildRetrievalOpts(cfg *config.Config) ([]retrieval.Option, error) {
	var opts []retrieval.Option

	var gen embed.Generator
	switch cfg.Embedding.Provider {
	case "deterministic":
		gen = embed.NewDeterministic(cfg.Embedding.Dimension)
	case "openai":
		var err error
		gen, err = embed.NewOpenAI(embed.OpenAIConfig{
			APIKey:    cfg.Embedding.APIKey,
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
		})
		if err != nil {
			return nil, err
		}
	case "none":
		return nil, nil
	}
	opts = append(opts, retrieval.WithEmbedder(gen))

	if path := cfg.Index.VectorPath; path != "" {
		if _, err := os.Stat(path); err == nil {
			v := index.NewVector(0)
			if err := v.Load(path); err != nil {
				return nil, err
			}
			opts = append(opts, retrieval.WithVectorIndex(v))
		}
	}
	return opts, nil
}

func (p *pipeline) close() {
	if path := p.cfg.Index.VectorPath; path != "" {
		if err := p.retrieval.SaveIndex(path); err != nil {
			p.log.Error("saving vector index failed", map[string]any{"error": err.Error()})
		}
	}
	p.retrieval.Close()
	p.bus.Close()
}

// fileType derives the parser type from the file extension.
func fileType(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "markdown" {
		return "md"
	}
	return ext
}

func (p *pipeline) ingestFile(ctx context.Context, path string) error {
	traceID, err := p.coordinator.Ingest(ctx, path, fileType(path))
	if err != nil {
		return err
	}

	// Bus delivery is synchronous, so by now the chain either indexed
	// the document or error-replied on this trace.
	for _, msg := range p.bus.History(traceID) {
		if msg.Kind == protocol.KindError {
			var ep protocol.ErrorPayload
			if derr := protocol.DecodePayload(msg.Payload, &ep); derr == nil && ep.Error != "" {
				return errors.New(ep.Error)
			}
			return errors.New("ingestion failed")
		}
	}

	docID := path + "_" + fileType(path)
	chunks, _ := p.ingestion.ChunkCount(docID)
	fmt.Printf("Ingested %s (%d chunks)\n", path, chunks)
	return nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("no files given")
	}

	p, err := buildPipeline(c)
	if err != nil {
		return err
	}
	defer p.close()

	ctx := c.Context
	for _, path := range c.Args().Slice() {
		if err := p.ingestFile(ctx, path); err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
	}

	stats := p.retrieval.Stats()
	fmt.Printf("Index now holds %d chunks\n", stats.TotalChunks)
	return nil
}

func chatCommand(c *cli.Context) error {
	p, err := buildPipeline(c)
	if err != nil {
		return err
	}
	defer p.close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, path := range c.StringSlice("file") {
		if err := p.ingestFile(ctx, path); err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "you> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".ragmesh_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	fmt.Println("Ask questions about your documents. Type /help for commands.")

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("Goodbye!")
				return nil
			}
			return err
		}

		input := strings.TrimSpace(line)
		switch {
		case input == "":
			continue
		case input == "exit" || input == "quit":
			fmt.Println("Goodbye!")
			return nil
		case input == "/help":
			fmt.Println("  /history <trace-id>  show the message chain for a trace")
			fmt.Println("  /stats               show index statistics")
			fmt.Println("  exit                 leave the chat")
			continue
		case input == "/stats":
			stats := p.retrieval.Stats()
			fmt.Printf("%d chunks indexed\n", stats.TotalChunks)
			continue
		case strings.HasPrefix(input, "/history"):
			printHistory(p.bus, strings.TrimSpace(strings.TrimPrefix(input, "/history")))
			continue
		}

		res := p.coordinator.Query(ctx, input, p.cfg.Coordinator.TopK)
		fmt.Println()
		fmt.Println(res.Response)
		if len(res.Sources) > 0 {
			fmt.Println("\nSources:")
			for i, src := range res.Sources {
				fmt.Printf("  %d. %s, section %v\n", i+1, src.DocumentID, src.Section)
			}
		}
		fmt.Printf("\n(trace %s)\n", res.TraceID)
	}
}

func printHistory(b *bus.Bus, traceID string) {
	if traceID == "" {
		fmt.Println("usage: /history <trace-id>")
		return
	}
	msgs := b.History(traceID)
	if len(msgs) == 0 {
		fmt.Println("no messages for that trace")
		return
	}
	for _, msg := range msgs {
		fmt.Printf("  %s  %s -> %s  %s\n",
			msg.Timestamp.Format("15:04:05.000"), msg.Sender, msg.Receiver, msg.Kind)
	}
}
