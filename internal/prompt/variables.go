package prompt

import "strings"

// ControlType is the kind of form control a variable is best edited with.
type ControlType string

const (
	ControlText     ControlType = "text"
	ControlTextarea ControlType = "textarea"
	ControlJSON     ControlType = "json"
)

// Source tells where a variable's value is expected to come from.
type Source string

const (
	// SourceUser marks base inputs that no earlier step produces.
	SourceUser Source = "user"

	// SourceContext marks values normally produced by an earlier step.
	SourceContext Source = "context"
)

// Descriptor is the static metadata known about a variable name.
type Descriptor struct {
	DisplayName string
	Description string
	Control     ControlType
	Source      Source
}

// Variable is an input slot ready to be rendered as a form field.
type Variable struct {
	Name        string      `json:"name" yaml:"name"`
	DisplayName string      `json:"display_name" yaml:"display_name"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Control     ControlType `json:"control" yaml:"control"`
	Required    bool        `json:"required" yaml:"required"`
	Source      Source      `json:"source" yaml:"source"`
}

var displayNames = map[string]string{
	// macro level, inputs
	"project_brief":         "项目立项单",
	"inspiration_pool":      "灵感池",
	"market_analysis":       "市场分析结果",
	"target_reader_profile": "目标读者画像",

	// macro level, produced by earlier steps
	"substitute_inspiration_list":   "替身文灵感列表",
	"inspiration_summary":           "灵感汇总",
	"substitute_market_positioning": "市场定位结果",
	"creation_direction":            "创作方向",
	"substitute_theme_positioning":  "主题定位结果",
	"theme_layers":                  "主题层次",
	"substitute_core_concept":       "核心梗设定",
	"emotional_line":                "情感线",
	"triangle_relationship":         "三角关系",
	"substitute_outline":            "替身文大纲",
	"main_plot_outline":             "主线大纲",
	"chapter_outline":               "章节大纲",
	"substitute_story_frame":        "故事框架",
	"substitute_rhythm_design":      "节奏设计",
	"substitute_world_setting":      "世界观设定",

	// meso level
	"substitute_female_lead":           "女主角设定",
	"substitute_male_lead":             "男主角设定",
	"substitute_white_moon":            "白月光设定",
	"substitute_relationship_network":  "人物关系网络",
	"substitute_emotional_development": "情感发展设计",
	"main_relationships":               "主要人物关系",
	"conflict_design":                  "冲突设计",
	"growth_arc":                       "成长弧线",
	"transformation_arc":               "转变弧线",
	"pursuit_process":                  "追妻过程",
	"emotion_stages":                   "情感阶段",
	"true_false_emotion":               "真假情感对比",

	// micro level
	"scene_setting":             "场景设定",
	"dialogue_context":          "对话上下文",
	"emotional_tone":            "情感基调",
	"chapter_beats":             "章节节拍",
	"previous_chapter":          "前一章内容",
	"character_states":          "角色状态",
	"detail_outline_guide":      "细纲指南",
	"scene_material_prep":       "场景素材准备",
	"key_description_points":    "关键描写要点",
	"chapter_outline_detail":    "章节细纲详情",
	"emotion_description_guide": "情感描写指南",
	"dialogue_subtext_guide":    "对话潜台词指南",
	"pacing_control_guide":      "节奏控制指南",
	"foreshadowing_guide":       "伏笔设计指南",
	"tension_build_guide":       "张力构建指南",
	"scene_transition_guide":    "场景转换指南",
	"action_description_guide":  "动作描写指南",
	"inner_monologue_guide":     "内心独白指南",
	"atmosphere_build_guide":    "氛围营造指南",

	// general
	"user_input":     "用户输入",
	"context":        "上下文信息",
	"world_setting":  "世界观设定",
	"character_info": "角色信息",
	"plot_summary":   "剧情摘要",
	"current_scene":  "当前场景",
	"writing_style":  "写作风格",
}

var descriptions = map[string]string{
	"project_brief":           "包含故事主题、风格、目标字数等基本信息",
	"inspiration_pool":        "收集的灵感素材和创意点子（可以是零散的想法）",
	"market_analysis":         "目标平台的市场调研结果",
	"target_reader_profile":   "理想读者的画像描述",
	"substitute_core_concept": "替身文的核心设定和卖点",
	"substitute_outline":      "完整的故事大纲结构",
	"substitute_female_lead":  "女主角的详细人设",
	"substitute_male_lead":    "男主角的详细人设",
	"substitute_white_moon":   "白月光角色的设定",
	"chapter_outline":         "当前章节的详细大纲",
	"previous_chapter":        "前一章的内容摘要（用于保持连贯性）",
}

// userInputs are step-zero variables nobody upstream produces.
var userInputs = map[string]bool{
	"project_brief":    true,
	"inspiration_pool": true,
	"user_input":       true,
}

var jsonKeywords = []string{"list", "array"}

var longTextKeywords = []string{
	"content", "outline", "brief", "description", "analysis",
	"profile", "concept", "design", "development", "chapter",
	"lead", "pool", "context", "states", "beats", "arc",
	"summary", "positioning", "direction", "frame", "network",
}

// Describe returns the metadata for a variable name. It never fails:
// unknown names get a derived display name and a default control.
func Describe(name string) Descriptor {
	d := Descriptor{
		DisplayName: displayNames[name],
		Description: descriptions[name],
		Control:     InferControl(name),
		Source:      SourceContext,
	}
	if d.DisplayName == "" {
		d.DisplayName = FormatName(name)
	}
	if userInputs[name] {
		d.Source = SourceUser
	}
	return d
}

// InferControl guesses the control type from substrings of the raw name.
func InferControl(name string) ControlType {
	lower := strings.ToLower(name)
	for _, kw := range jsonKeywords {
		if strings.Contains(lower, kw) {
			return ControlJSON
		}
	}
	for _, kw := range longTextKeywords {
		if strings.Contains(lower, kw) {
			return ControlTextarea
		}
	}
	return ControlText
}

// FormatName turns snake_case into space separated, capitalized words.
func FormatName(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}

func newVariable(name string) Variable {
	d := Describe(name)
	return Variable{
		Name:        name,
		DisplayName: d.DisplayName,
		Description: d.Description,
		Control:     d.Control,
		Required:    true,
		Source:      d.Source,
	}
}
