package impl

import (
	"github.com/cloudwego/eino/schema"

	"github.com/Saurav134/Agentic-Project-Builder/internal/llm"
	"github.com/Saurav134/Agentic-Project-Builder/internal/recovery"
)

func stringList(desc string) *schema.ParameterInfo {
	return &schema.ParameterInfo{Type: schema.Array, Desc: desc, ElemInfo: &schema.ParameterInfo{Type: schema.String}}
}

var planSchema = llm.Schema{
	Name:        recovery.TagPlan,
	Description: "Record the project plan.",
	Params: map[string]*schema.ParameterInfo{
		"name":               {Type: schema.String, Desc: "Project name", Required: true},
		"description":        {Type: schema.String, Desc: "One-line description"},
		"techstack":          {Type: schema.String, Desc: "Technologies to use"},
		"features":           stringList("Features to implement"),
		"architecture_notes": {Type: schema.String, Desc: "Optional notes"},
		"files": {
			Type:     schema.Array,
			Desc:     "Files to create",
			Required: true,
			ElemInfo: &schema.ParameterInfo{
				Type: schema.Object,
				SubParams: map[string]*schema.ParameterInfo{
					"path":         {Type: schema.String, Desc: "Relative file path", Required: true},
					"purpose":      {Type: schema.String, Desc: "What the file is for"},
					"dependencies": stringList("Files this one depends on"),
				},
			},
		},
	},
}

var taskPlanSchema = llm.Schema{
	Name:        recovery.TagTaskPlan,
	Description: "Record the ordered implementation steps.",
	Params: map[string]*schema.ParameterInfo{
		"implementation_steps": {
			Type:     schema.Array,
			Desc:     "One step per file",
			Required: true,
			ElemInfo: &schema.ParameterInfo{
				Type: schema.Object,
				SubParams: map[string]*schema.ParameterInfo{
					"filepath":         {Type: schema.String, Desc: "File path", Required: true},
					"task_description": {Type: schema.String, Desc: "Detailed instructions", Required: true},
					"dependencies":     stringList("Files that must exist first"),
					"expected_exports": stringList("What this file provides"),
					"priority":         {Type: schema.Integer, Desc: "Order number, 0 = first", Required: true},
				},
			},
		},
	},
}

var codeReviewSchema = llm.Schema{
	Name:        recovery.TagCodeReview,
	Description: "Record the review verdict for one file.",
	Params: map[string]*schema.ParameterInfo{
		"passed":          {Type: schema.Boolean, Desc: "Whether the file is acceptable", Required: true},
		"overall_quality": {Type: schema.Integer, Desc: "Quality from 0 to 10", Required: true},
		"summary":         {Type: schema.String, Desc: "Brief summary"},
		"issues": {
			Type: schema.Array,
			Desc: "Problems found",
			ElemInfo: &schema.ParameterInfo{
				Type: schema.Object,
				SubParams: map[string]*schema.ParameterInfo{
					"issue_type":  {Type: schema.String, Desc: "Kind of issue"},
					"description": {Type: schema.String, Desc: "What is wrong", Required: true},
					"suggestion":  {Type: schema.String, Desc: "How to fix it"},
					"severity": {
						Type: schema.String,
						Enum: []string{"critical", "high", "medium", "low"},
					},
				},
			},
		},
	},
}
