package cli

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kiryl-martsinkevich/sdlc-agents/internal/agent"
)

var (
	implementRe = regexp.MustCompile(`(?i)\bimplement\b.*?\b(?:story|item)\s*#?(\d+)`)
	splitRe     = regexp.MustCompile(`(?i)\bsplit\b.*?\bfeature\s*#?(\d+)(?:.*?\binto\s+(\d+))?`)
	releaseRe   = regexp.MustCompile(`(?i)\b(?:create|cut|make)\b.*?\brelease\b(?:\s+(?:for|of)\s+(.+))?`)
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive session with the orchestrator",
	Long:  "Reads requests line by line. Recognized task phrasings are routed directly; everything else goes to the orchestrator's language model.",
	Run: func(cmd *cobra.Command, args []string) {
		sys, err := buildSystem()
		if err != nil {
			exitErr("initialize", err)
		}
		defer sys.Close()

		fmt.Println("sdlc-agents chat. Type 'exit' to quit.")
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				break
			}

			if task, ok := parseMessage(line); ok {
				printJSON(sys.Orchestrator.ProcessTask(cmd.Context(), task))
				continue
			}

			reply, err := sys.Orchestrator.HandleMessage(cmd.Context(), line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			fmt.Println(reply)
		}
	},
}

// parseMessage extracts a typed task from common phrasings. Anything it
// does not recognize is left to the language model.
func parseMessage(text string) (agent.Task, bool) {
	if m := implementRe.FindStringSubmatch(text); m != nil {
		id, _ := strconv.Atoi(m[1])
		return agent.ImplementStoryTask{StoryID: id}, true
	}
	if m := splitRe.FindStringSubmatch(text); m != nil {
		id, _ := strconv.Atoi(m[1])
		count := 0
		if m[2] != "" {
			count, _ = strconv.Atoi(m[2])
		}
		return agent.SplitFeatureTask{FeatureID: id, Count: count}, true
	}
	if m := releaseRe.FindStringSubmatch(text); m != nil {
		var components []string
		for _, c := range strings.FieldsFunc(m[1], func(r rune) bool { return r == ',' || r == ' ' }) {
			if c != "and" {
				components = append(components, c)
			}
		}
		return agent.CreateReleaseTask{Components: components, SourceBranch: "main"}, true
	}
	return nil, false
}

func init() {
	RootCmd.AddCommand(chatCmd)
}
