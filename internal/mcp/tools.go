package mcp

import "github.com/mark3labs/mcp-go/mcp"

var loadToolDef = mcp.NewTool("deck_load",
	mcp.WithDescription("Load a flashcard dataset from a local file path or http(s) URL. Replaces the current deck and clears any active filter. Records that fail validation are reported but do not abort the load."),
	mcp.WithString("source",
		mcp.Description("File path or URL of the card JSON array. Defaults to the configured dataset source."),
	),
)

var currentToolDef = mcp.NewTool("deck_current",
	mcp.WithDescription("Return the card under the cursor with its label overlay, effective difficulty/usefulness, and position within the current view."),
)

var nextToolDef = mcp.NewTool("deck_next",
	mcp.WithDescription("Advance to the next card in the current view, wrapping to the first card after the last, and return it."),
)

var prevToolDef = mcp.NewTool("deck_prev",
	mcp.WithDescription("Move to the previous card in the current view, wrapping to the last card from the first, and return it."),
)

var shuffleToolDef = mcp.NewTool("deck_shuffle",
	mcp.WithDescription("Randomly reorder the cards in the current view and reposition at the first card."),
)

var resetToolDef = mcp.NewTool("deck_reset",
	mcp.WithDescription("Move the cursor back to the first card of the current view without changing the order."),
)

var filterToolDef = mcp.NewTool("deck_filter",
	mcp.WithDescription("Filter the deck by search text, category, difficulty, and usefulness. Conditions combine with AND; omitted fields do not constrain. Label overrides take precedence over card values. An empty result is valid, not an error. Call with no arguments to clear filters."),
	mcp.WithString("search",
		mcp.Description("Case-insensitive substring matched against question, categories, and answer."),
	),
	mcp.WithString("category",
		mcp.Description("Exact category name; matches cards carrying it among their categories."),
	),
	mcp.WithString("difficulty",
		mcp.Description("Effective difficulty to match."),
		mcp.Enum("easy", "medium", "hard"),
	),
	mcp.WithString("usefulness",
		mcp.Description("Effective usefulness to match."),
		mcp.Enum("useful", "dangerous", "information"),
	),
)

var labelToolDef = mcp.NewTool("card_label",
	mcp.WithDescription("Update persistent labels on a card: toggle the grasped flag and/or override difficulty and usefulness. Labels survive dataset reloads and apply to matching card ids."),
	mcp.WithString("id",
		mcp.Description("Card id to label. Defaults to the current card."),
	),
	mcp.WithBoolean("toggle_grasped",
		mcp.Description("Flip the grasped flag."),
	),
	mcp.WithString("difficulty",
		mcp.Description("Difficulty override to record."),
		mcp.Enum("easy", "medium", "hard"),
	),
	mcp.WithString("usefulness",
		mcp.Description("Usefulness override to record."),
		mcp.Enum("useful", "dangerous", "information"),
	),
)

var statsToolDef = mcp.NewTool("deck_stats",
	mcp.WithDescription("Return aggregate counters (total, shown, grasped), filter options with counts, and any validation issues from the last load."),
)

var exportToolDef = mcp.NewTool("deck_export",
	mcp.WithDescription("Export the loaded dataset and all labels to a JSON file. The file must have a .json extension and live directly in an allowed directory."),
	mcp.WithString("path",
		mcp.Description("Destination path. Defaults to flashcards-export.json in the exports directory."),
	),
)

var importToolDef = mcp.NewTool("deck_import",
	mcp.WithDescription("Import a dataset from a JSON file: either a bare card array (labels are kept) or a previous export envelope (labels are replaced). A failed import leaves the session unchanged."),
	mcp.WithString("path",
		mcp.Description("Path of the file to import."),
		mcp.Required(),
	),
)

var validateToolDef = mcp.NewTool("deck_validate",
	mcp.WithDescription("Validate cards against the schema and report fixable problems: bad id charsets, near-miss enum values, unhyphenated categories, malformed timestamps, and near-duplicate category names."),
	mcp.WithString("source",
		mcp.Description("File path or URL to validate. Defaults to the loaded dataset."),
	),
	mcp.WithBoolean("fix",
		mcp.Description("Apply safe automatic fixes and report them; the result is not persisted."),
	),
)
