package prompt

import "github.com/draftforge/draftforge/internal/schema"

// Built-in section tables. Order here is the order sections appear in the
// final report; the orchestrator never reorders.

var legalSections = []schema.SectionConfig{
	{
		ID:      "title",
		Title:   "Legal Statement",
		Element: schema.ElementTitle,
		Content: schema.ContentFormatting,
	},
	{
		ID:          "introduction",
		Title:       "Introduction",
		Description: "Identify the parties, the matter, and the purpose of this statement.",
		Element:     schema.ElementText,
		Content:     schema.ContentGenerated,
		QueryTemplates: []string{
			"parties to the agreement and their roles",
			"purpose and subject matter of the agreement",
		},
		MaxWords: 250,
	},
	{
		ID:          "background",
		Title:       "Background",
		Description: "Set out the factual background and chronology relevant to the matter.",
		Element:     schema.ElementText,
		Content:     schema.ContentGenerated,
		QueryTemplates: []string{
			"chronology of events and key dates",
			"factual background of the dispute or matter",
		},
		MaxWords: 400,
	},
	{
		ID:          "key-provisions",
		Title:       "Key Provisions",
		Description: "List the contractual provisions most relevant to the matter, citing their sources.",
		Element:     schema.ElementList,
		Content:     schema.ContentGenerated,
		QueryTemplates: []string{
			"termination clause and conditions",
			"obligations and liabilities of the parties",
			"governing law and jurisdiction clause",
		},
		MaxWords: 350,
	},
	{
		ID:          "obligations-table",
		Title:       "Obligations Summary",
		Description: "Tabulate each party's principal obligations with the source provision.",
		Element:     schema.ElementTable,
		Content:     schema.ContentStructural,
		QueryTemplates: []string{
			"obligations of each party under the agreement",
		},
		MaxWords: 300,
	},
	{
		ID:      "divider",
		Title:   "",
		Element: schema.ElementHorizontalRule,
		Content: schema.ContentFormatting,
	},
	{
		ID:          "analysis",
		Title:       "Analysis",
		Description: "Analyze how the provisions apply to the facts, flagging uncertainty where the record is silent.",
		Element:     schema.ElementText,
		Content:     schema.ContentGenerated,
		QueryTemplates: []string{
			"breach of contract or non-performance",
			"remedies and notice requirements",
		},
		MaxWords: 500,
	},
	{
		ID:          "conclusion",
		Title:       "Conclusion",
		Description: "Summarize the position and recommended next steps.",
		Element:     schema.ElementText,
		Content:     schema.ContentStructural,
		QueryTemplates: []string{
			"conclusions and recommended actions",
		},
		MaxWords: 200,
	},
}

var caseStudySections = []schema.SectionConfig{
	{
		ID:      "title",
		Title:   "Case Study",
		Element: schema.ElementTitle,
		Content: schema.ContentFormatting,
	},
	{
		ID:          "summary",
		Title:       "Executive Summary",
		Description: "Summarize the case, its context, and the headline outcome.",
		Element:     schema.ElementText,
		Content:     schema.ContentStructural,
		QueryTemplates: []string{
			"overview and outcome of the case",
		},
		MaxWords: 200,
	},
	{
		ID:          "context",
		Title:       "Context",
		Description: "Describe the organization, environment, and the problem being addressed.",
		Element:     schema.ElementText,
		Content:     schema.ContentGenerated,
		QueryTemplates: []string{
			"organization background and operating context",
			"problem statement and motivation",
		},
		MaxWords: 350,
	},
	{
		ID:          "approach",
		Title:       "Approach",
		Description: "Explain the approach taken, step by step.",
		Element:     schema.ElementList,
		Content:     schema.ContentGenerated,
		QueryTemplates: []string{
			"methodology and steps taken",
			"decisions and trade-offs made",
		},
		MaxWords: 400,
	},
	{
		ID:          "results",
		Title:       "Results",
		Description: "Present the measurable results against the initial goals.",
		Element:     schema.ElementTable,
		Content:     schema.ContentGenerated,
		QueryTemplates: []string{
			"results metrics and measured outcomes",
		},
		MaxWords: 300,
	},
	{
		ID:          "lessons",
		Title:       "Lessons Learned",
		Description: "Distill the transferable lessons from this case.",
		Element:     schema.ElementList,
		Content:     schema.ContentStructural,
		QueryTemplates: []string{
			"lessons learned and recommendations",
		},
		MaxWords: 250,
	},
}
