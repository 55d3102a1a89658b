package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/lantern/pkg/domain"
)

// Overlay contains runtime state to highlight on the diagram.
type Overlay struct {
	SeenSteps   []string
	CurrentStep string
}

// GenerateMermaid produces a Mermaid flowchart of an experience.
// Groups become subgraphs and steps are linked in presentation order.
// Explicit jumps (continue actions with a stepID) are drawn dotted with their trigger,
// and close actions point at a terminal node.
// Step shapes:
// - Form step: [/Parallelogram/]
// - Step with a conditional: {{Hexagon}}
// - Default: [Rectangle]
func GenerateMermaid(exp *domain.Experience, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    start((\"start\"))\n")

	prev := "start"
	for gi, group := range exp.Groups {
		groupID := sanitizeMermaidID(group.ID)
		if groupID == "" {
			groupID = fmt.Sprintf("group_%d", gi)
		}
		sb.WriteString(fmt.Sprintf("    subgraph %s[\"%s\"]\n", groupID, escape(labelOr(group.ID, groupID))))
		for _, step := range group.Steps {
			opener, closer := "[", "]"
			switch {
			case len(step.Form) > 0:
				opener, closer = "[/", "/]"
			case hasAction(step.Actions, "@lantern/conditional"):
				opener, closer = "{{", "}}"
			}
			sb.WriteString(fmt.Sprintf("        %s%s\"%s\"%s\n", stepNode(step.ID), opener, escape(step.ID), closer))
		}
		sb.WriteString("    end\n")

		for _, step := range group.Steps {
			id := stepNode(step.ID)
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", prev, id))
			prev = id

			for _, a := range step.Actions {
				switch a.Type {
				case "@lantern/continue":
					target, _ := a.Config["stepID"].(string)
					if target == "" {
						continue
					}
					sb.WriteString(fmt.Sprintf("    %s -. \"%s\" .-> %s\n", id, escape(a.Trigger), stepNode(target)))
				case "@lantern/close":
					sb.WriteString(fmt.Sprintf("    %s -. \"%s\" .-> done\n", id, escape(a.Trigger)))
				}
			}
		}
	}
	sb.WriteString(fmt.Sprintf("    %s --> done\n", prev))
	sb.WriteString("    done((\"end\"))\n")

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef seen fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.SeenSteps {
			node := stepNode(id)
			if !seen[node] && id != "" {
				seen[node] = true
				sb.WriteString(fmt.Sprintf("    class %s seen;\n", node))
			}
		}
		if overlay.CurrentStep != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", stepNode(overlay.CurrentStep)))
		}
	}

	return sb.String()
}

func hasAction(actions []domain.Action, actionType string) bool {
	for _, a := range actions {
		if a.Type == actionType {
			return true
		}
	}
	return false
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}

func stepNode(id string) string {
	return "step_" + sanitizeMermaidID(id)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
