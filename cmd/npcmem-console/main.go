package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/peterh/liner"

	"github.com/veilbrook/npcmem/pkg/config"
	"github.com/veilbrook/npcmem/pkg/log"
	"github.com/veilbrook/npcmem/pkg/npc"
	"github.com/veilbrook/npcmem/pkg/recall"
	"github.com/veilbrook/npcmem/pkg/record"
	"github.com/veilbrook/npcmem/pkg/relationship"
)

// Console commands
const (
	cmdHelp     = "!help"
	cmdQuit     = "!quit"
	cmdNPC      = "!npc"
	cmdPlayer   = "!player"
	cmdRemember = "!remember"
	cmdSlot     = "!slot"
	cmdRecall   = "!recall"
	cmdBudget   = "!budget"
	cmdStatus   = "!status"
	cmdDelta    = "!delta"
)

const helpText = `
npcmem Console - Command Reference:
-----------------------------------------
!help                          - Show this help message
!npc <id>                      - Set the current NPC
!player <id>                   - Set the current player
!remember <event_type> <text>  - Record an interaction memory
!slot <slot_type> <text>       - Record a slot fact (replaces the old value)
!recall <query>                - Show the memory selection for a query
!budget <tokens>               - Set the token budget for recall
!status                        - Show the relationship header for the current NPC
!delta <dim>=<n> [...]         - Apply a relationship delta (trust, affection, fear, respect, familiarity)
!quit                          - Exit

Notes:
- Regular text input is sent to the NPC as a dialogue line
- Tab completion is available for commands
- Use up/down arrows for command history`

// historyFile is the file where command history is stored
const historyFile = ".npcmem_history"

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// .env carries OPENAI_API_KEY in local setups; absence is fine
	_ = godotenv.Load()

	log.Setup(log.Config{
		Level:  log.WarnLevel,
		Format: log.TextFormat,
	})

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
			os.Exit(1)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	engine, err := recall.NewEngineFromConfig(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize engine:", err)
		os.Exit(1)
	}

	runConsole(engine, cfg)
}

// session holds the mutable console state.
type session struct {
	engine *recall.Engine
	npcID  npc.ID
	player string
	budget int
}

func runConsole(engine *recall.Engine, cfg *config.Config) {
	sess := &session{
		engine: engine,
		npcID:  "innkeeper",
		player: "player-1",
		budget: 2500,
	}

	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(false)
	line.SetCompleter(func(line string) (c []string) {
		commands := []string{cmdHelp, cmdQuit, cmdNPC, cmdPlayer, cmdRemember, cmdSlot, cmdRecall, cmdBudget, cmdStatus, cmdDelta}
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, line) {
				c = append(c, cmd)
			}
		}
		return
	})

	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("\n=== npcmem Console ===")
	fmt.Println("Store:", cfg.Store.Type, "| Dialogue:", cfg.Dialogue.Provider)
	fmt.Printf("Current NPC: %s | Current Player: %s | Budget: %d tokens\n", sess.npcID, sess.player, sess.budget)
	fmt.Println("Type !help for available commands.")

	for {
		prompt := fmt.Sprintf("npcmem::%s@%s> ", sess.player, sess.npcID)
		input, err := line.Prompt(prompt)
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nGoodbye!")
				break
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if input == cmdQuit {
			fmt.Println("Goodbye!")
			break
		}
		processInput(sess, input)
	}
}

// processInput dispatches one console line.
func processInput(sess *session, input string) {
	ctx := npc.ContextWith(context.Background(), npc.NewContext(sess.npcID, sess.player))

	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case cmdHelp:
		fmt.Println(helpText)

	case cmdNPC:
		if rest == "" {
			fmt.Println("Usage: !npc <id>")
			return
		}
		sess.npcID = npc.ID(rest)
		fmt.Println("Current NPC set to:", sess.npcID)

	case cmdPlayer:
		if rest == "" {
			fmt.Println("Usage: !player <id>")
			return
		}
		sess.player = rest
		fmt.Println("Current player set to:", sess.player)

	case cmdBudget:
		n, err := strconv.Atoi(rest)
		if err != nil || n <= 0 {
			fmt.Println("Usage: !budget <positive token count>")
			return
		}
		sess.budget = n
		fmt.Println("Token budget set to:", n)

	case cmdRemember:
		eventType, text, _ := strings.Cut(rest, " ")
		text = strings.TrimSpace(text)
		if eventType == "" || text == "" {
			fmt.Println("Usage: !remember <event_type> <text>")
			return
		}
		id, err := sess.engine.RecordInteraction(ctx, sess.npcID, recall.Interaction{
			Text:      text,
			EventType: record.EventType(eventType),
		})
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		fmt.Println("Remembered as:", id)

	case cmdSlot:
		slotType, text, _ := strings.Cut(rest, " ")
		text = strings.TrimSpace(text)
		if slotType == "" || text == "" {
			fmt.Println("Usage: !slot <slot_type> <text>")
			return
		}
		id, err := sess.engine.RecordInteraction(ctx, sess.npcID, recall.Interaction{
			Text:     text,
			SlotType: record.SlotType(slotType),
		})
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		fmt.Println("Slot updated as:", id)

	case cmdRecall:
		sel, err := sess.engine.Select(ctx, sess.npcID, rest, sess.budget)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		fmt.Printf("Selection (%d entries, %d/%d tokens):\n", len(sel.Entries), sel.TokensUsed, sess.budget)
		for _, entry := range sel.Entries {
			marker := " "
			if entry.Protected {
				marker = "*"
			}
			fmt.Printf(" %s [%3d tok, score %.3f] %s\n", marker, entry.Tokens, entry.Score, entry.Text)
		}

	case cmdStatus:
		sel, err := sess.engine.Select(ctx, sess.npcID, "", sess.budget)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		fmt.Println(sel.Header)

	case cmdDelta:
		delta, err := parseDelta(rest)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		state, err := sess.engine.ApplyDelta(ctx, sess.npcID, delta)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		fmt.Printf("trust=%.0f affection=%.0f fear=%.0f respect=%.0f familiarity=%.0f\n",
			state.Trust, state.Affection, state.Fear, state.Respect, state.Familiarity)

	default:
		reply, err := sess.engine.Converse(ctx, sess.npcID, input, sess.budget)
		if err != nil {
			fmt.Println("Error:", err)
			return
		}
		fmt.Println(reply.Text)
		if reply.Analysis.Tone != "" {
			fmt.Printf("  (tone: %s, classified: %s)\n", reply.Analysis.Tone, reply.Analysis.InteractionType)
		}
	}
}

// parseDelta parses "trust=5 fear=-2" style delta arguments.
func parseDelta(args string) (relationship.Delta, error) {
	var d relationship.Delta
	if args == "" {
		return d, fmt.Errorf("usage: !delta <dim>=<n> [...]")
	}
	for _, pair := range strings.Fields(args) {
		dim, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return d, fmt.Errorf("malformed delta: %s", pair)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return d, fmt.Errorf("malformed value in %s: %v", pair, err)
		}
		switch dim {
		case "trust":
			d.Trust = v
		case "affection":
			d.Affection = v
		case "fear":
			d.Fear = v
		case "respect":
			d.Respect = v
		case "familiarity":
			d.Familiarity = v
		default:
			return d, fmt.Errorf("unknown dimension: %s", dim)
		}
	}
	return d, nil
}
