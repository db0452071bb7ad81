package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Octane0411/openagent/internal/agent"
	"github.com/Octane0411/openagent/internal/commands"
	"github.com/Octane0411/openagent/internal/config"
	"github.com/Octane0411/openagent/internal/hooks"
	"github.com/Octane0411/openagent/internal/permission"
	"github.com/Octane0411/openagent/internal/pipeline"
	"github.com/Octane0411/openagent/internal/preprocess"
	"github.com/Octane0411/openagent/internal/render"
	"github.com/Octane0411/openagent/internal/session"
	"github.com/Octane0411/openagent/internal/tasks"
	"github.com/Octane0411/openagent/internal/telemetry"
	"github.com/Octane0411/openagent/internal/tool"
	"github.com/Octane0411/openagent/internal/tool/builtin"
	"github.com/Octane0411/openagent/internal/transport"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "openagent",
	Short: "openagent - terminal agent with tool execution",
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run the interactive chat session",
	RunE:  runChat,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("openagent", version)
	},
}

var (
	messageFlag string
	resumeFlag  string
	yesFlag     bool
)

func init() {
	chatCmd.Flags().StringVarP(&messageFlag, "message", "m", "", "Single message to send")
	chatCmd.Flags().StringVar(&resumeFlag, "resume", "", "Session id to resume")
	chatCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "Approve all tool calls without prompting")
	rootCmd.AddCommand(chatCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Provider.APIKey == "" {
		return fmt.Errorf("API key not set. Set OPENAGENT_API_KEY, ANTHROPIC_API_KEY or OPENAI_API_KEY")
	}

	tr, err := buildTransport(cfg)
	if err != nil {
		return err
	}

	tracer, err := telemetry.NewTracer(telemetry.ConfigFromEnv())
	if err != nil {
		log.Printf("telemetry disabled: %v", err)
		tracer = telemetry.NoopTracer{}
	}
	defer tracer.Shutdown(context.Background())

	taskStore := tasks.NewStore()
	registry := tool.NewRegistry()
	for _, t := range []tool.Tool{
		builtin.NewBashTool(),
		builtin.NewEditTool(),
		builtin.NewWriteTool(),
		builtin.NewWebFetchTool(),
		builtin.NewTaskCreateTool(taskStore),
		builtin.NewTaskUpdateTool(taskStore),
		builtin.NewTaskGetTool(taskStore),
		builtin.NewTaskListTool(taskStore),
	} {
		if err := registry.Register(t); err != nil {
			return fmt.Errorf("register tool: %w", err)
		}
	}

	// One buffered reader on stdin, shared by the REPL and the permission
	// prompt so neither swallows lines meant for the other.
	stdin := bufio.NewReader(os.Stdin)

	var permOpts []permission.Option
	if yesFlag || cfg.Tools.AutoApprove {
		permOpts = append(permOpts, permission.WithAllowAll())
	}
	perms := permission.NewNegotiator(stdin, os.Stderr, permOpts...)

	dispatcher := hooks.NewDispatcher()
	hooks.RegisterBuiltins(dispatcher)

	renderer := render.NewRenderer(os.Stdout)
	execCtx := tool.ExecContext{Cwd: cfg.Agent.Workspace}
	pl := pipeline.New(registry, perms, dispatcher, renderer, tracer, execCtx)

	sessionID := resumeFlag
	if sessionID == "" {
		sessionID = session.NewID()
	}
	sessions := session.NewStore(filepath.Join(cfg.Agent.Workspace, ".sessions"))

	defs := make([]transport.Definition, 0)
	for _, d := range registry.Definitions() {
		defs = append(defs, transport.Definition{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema,
		})
	}

	ag := agent.New(tr, pl, defs, os.Stdout, agent.Options{
		System:        systemPrompt(cfg),
		Model:         cfg.Agent.Model,
		MaxTokens:     cfg.Agent.MaxTokens,
		MaxIterations: cfg.Agent.MaxToolIterations,
		SessionID:     sessionID,
		Tracer:        tracer,
	})

	if resumeFlag != "" {
		msgs, err := sessions.Load(resumeFlag)
		if err != nil {
			return fmt.Errorf("resume session: %w", err)
		}
		ag.SetMessages(msgs)
	}

	slash := commands.NewExecutor(cfg.Agent.CommandsDir, preprocess.Options{
		CommandTimeout: time.Duration(cfg.Tools.CommandTimeout) * time.Second,
		WorkDir:        cfg.Agent.Workspace,
	})

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go func() {
		if err := commands.Watch(watchCtx, slash); err != nil && watchCtx.Err() == nil {
			log.Printf("command watcher stopped: %v", err)
		}
	}()

	sessionStart := time.Now()
	dispatcher.Dispatch(context.Background(), hooks.SessionStart, hooks.SessionPayload{
		SessionID: sessionID,
		StartedAt: sessionStart,
	})
	defer dispatcher.Dispatch(context.Background(), hooks.SessionEnd, hooks.SessionPayload{
		SessionID: sessionID,
		StartedAt: sessionStart,
	})

	if messageFlag != "" {
		if err := runTurn(ag, messageFlag); err != nil {
			return err
		}
		return sessions.Save(sessionID, ag.Messages())
	}

	return repl(ag, slash, sessions, sessionID, stdin)
}

func runTurn(ag *agent.Agent, input string) error {
	// SIGINT cancels the in-flight turn, not the process.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return ag.Run(ctx, input)
}

func repl(ag *agent.Agent, slash *commands.Executor, sessions *session.Store, sessionID string, stdin *bufio.Reader) error {
	fmt.Printf("openagent %s (session %s, /help for commands)\n", version, sessionID)

	for {
		fmt.Print("\n> ")
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			break
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			done, prompt, err := handleSlash(ag, slash, sessions, sessionID, input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			if done {
				break
			}
			if prompt == "" {
				continue
			}
			input = prompt
		}

		if err := runTurn(ag, input); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if err := sessions.Save(sessionID, ag.Messages()); err != nil {
			log.Printf("save session: %v", err)
		}
	}
	return nil
}

// handleSlash executes a slash command. Built-in commands act on the session
// directly; file-backed commands render to a prompt the caller sends to the
// model.
func handleSlash(ag *agent.Agent, slash *commands.Executor, sessions *session.Store, sessionID, input string) (done bool, prompt string, err error) {
	inv, err := commands.Parse(input)
	if err != nil {
		return false, "", err
	}

	switch inv.Name {
	case "exit", "quit":
		return true, "", nil
	case "help":
		printHelp(slash)
		return false, "", nil
	case "clear":
		ag.SetMessages(nil)
		fmt.Println("history cleared")
		return false, "", nil
	case "save":
		if err := sessions.Save(sessionID, ag.Messages()); err != nil {
			return false, "", err
		}
		fmt.Println("saved", sessionID)
		return false, "", nil
	case "load":
		if len(inv.Args) != 1 {
			return false, "", fmt.Errorf("usage: /load <session-id>")
		}
		msgs, err := sessions.Load(inv.Args[0])
		if err != nil {
			return false, "", err
		}
		ag.SetMessages(msgs)
		fmt.Printf("loaded %s (%d messages)\n", inv.Args[0], len(msgs))
		return false, "", nil
	case "list", "sessions":
		list, err := sessions.List()
		if err != nil {
			return false, "", err
		}
		for _, s := range list {
			fmt.Printf("  %s  %s  %d messages\n", s.ID, s.UpdatedAt.Format(time.RFC3339), s.Messages)
		}
		return false, "", nil
	case "info":
		fmt.Printf("session %s, %d messages\n", sessionID, len(ag.Messages()))
		return false, "", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	rendered, err := slash.Run(ctx, inv)
	if err != nil {
		return false, "", err
	}
	return false, rendered, nil
}

func printHelp(slash *commands.Executor) {
	fmt.Println(`built-in commands:
  /help           show this help
  /clear          clear conversation history
  /save           save the session
  /load <id>      load a stored session
  /list           list stored sessions
  /info           show session info
  /exit           quit`)
	if list := slash.List(); len(list) > 0 {
		fmt.Println("custom commands:")
		for _, c := range list {
			if c.Metadata.Description != "" {
				fmt.Printf("  /%-14s %s\n", c.Name, c.Metadata.Description)
			} else {
				fmt.Printf("  /%s\n", c.Name)
			}
		}
	}
}

func buildTransport(cfg *config.Config) (transport.Transport, error) {
	switch cfg.Provider.Type {
	case "openai":
		return transport.NewOpenAI(transport.OpenAIConfig{
			APIKey:    cfg.Provider.APIKey,
			BaseURL:   cfg.Provider.BaseURL,
			Model:     cfg.Agent.Model,
			MaxTokens: cfg.Agent.MaxTokens,
		})
	default:
		return transport.NewAnthropic(transport.AnthropicConfig{
			APIKey:    cfg.Provider.APIKey,
			BaseURL:   cfg.Provider.BaseURL,
			Model:     cfg.Agent.Model,
			MaxTokens: cfg.Agent.MaxTokens,
		})
	}
}

func systemPrompt(cfg *config.Config) string {
	var b strings.Builder
	b.WriteString("You are openagent, a terminal assistant with tool access.\n")
	b.WriteString("Working directory: " + cfg.Agent.Workspace + "\n")
	b.WriteString("Prefer dedicated tools over shell commands for file operations.\n")
	b.WriteString("Current time: " + time.Now().Format(time.RFC1123) + "\n")
	return b.String()
}
