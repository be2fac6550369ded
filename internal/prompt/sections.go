package prompt

import (
	"regexp"
	"strings"
)

var sectionHeadingRe = regexp.MustCompile(`(?m)^##\s+(.+)$`)

// Sections are the conventional parts of a structured template.
type Sections struct {
	SystemRole         string `json:"system_role,omitempty" yaml:"system_role,omitempty"`
	ThinkingChain      string `json:"thinking_chain,omitempty" yaml:"thinking_chain,omitempty"`
	OutputRequirements string `json:"output_requirements,omitempty" yaml:"output_requirements,omitempty"`
	InputSlots         string `json:"input_slots,omitempty" yaml:"input_slots,omitempty"`
	OutputSlots        string `json:"output_slots,omitempty" yaml:"output_slots,omitempty"`
}

// SplitSections splits text on level-two headings and returns the trimmed
// body of each, keyed by heading title. Text before the first heading is
// dropped; a repeated heading keeps its last body.
func SplitSections(text string) map[string]string {
	sections := make(map[string]string)
	locs := sectionHeadingRe.FindAllStringSubmatchIndex(text, -1)
	for i, loc := range locs {
		title := strings.TrimSpace(text[loc[2]:loc[3]])
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		sections[title] = strings.TrimSpace(text[loc[1]:end])
	}
	return sections
}

// ExtractSections picks the conventional sections out of a template,
// accepting both the Chinese and English heading titles.
func ExtractSections(text string) Sections {
	all := SplitSections(text)
	pick := func(titles ...string) string {
		for _, t := range titles {
			if body, ok := all[t]; ok {
				return body
			}
		}
		return ""
	}
	return Sections{
		SystemRole:         pick("系统角色", "System Role"),
		ThinkingChain:      pick("思维链指令", "Chain of Thought"),
		OutputRequirements: pick("输出要求", "Output Requirements"),
		InputSlots:         pick(inputHeadings...),
		OutputSlots:        pick(outputHeadings...),
	}
}
