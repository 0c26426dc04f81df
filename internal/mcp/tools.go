package mcp

import (
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type whenArgs struct {
	Snapshot       string `json:"snapshot,omitempty" jsonschema:"Name of the backlog snapshot in the cache directory. Default: backlog"`
	TeamID         string `json:"team_id" jsonschema:"ID of the team whose throughput is used"`
	RemainingItems int    `json:"remaining_items" jsonschema:"Number of items left to finish"`
}

type howManyArgs struct {
	Snapshot   string `json:"snapshot,omitempty" jsonschema:"Name of the backlog snapshot in the cache directory. Default: backlog"`
	TeamID     string `json:"team_id" jsonschema:"ID of the team whose throughput is used"`
	Days       int    `json:"days,omitempty" jsonschema:"Forecast horizon in days"`
	TargetDate string `json:"target_date,omitempty" jsonschema:"Optional target date (YYYY-MM-DD). If provided, days is calculated automatically."`
}

type backlogArgs struct {
	Snapshot string   `json:"snapshot,omitempty" jsonschema:"Name of the backlog snapshot in the cache directory. Default: backlog"`
	TeamIDs  []string `json:"team_ids,omitempty" jsonschema:"Only forecast features these teams contribute to. Default: all features"`
	Save     bool     `json:"save,omitempty" jsonschema:"Persist the forecasts into the snapshot and append them to its history"`
}

type manualArgs struct {
	Snapshot       string `json:"snapshot,omitempty" jsonschema:"Name of the backlog snapshot in the cache directory. Default: backlog"`
	TeamID         string `json:"team_id" jsonschema:"ID of the team whose throughput is used"`
	RemainingItems int    `json:"remaining_items" jsonschema:"Number of items left to finish"`
	TargetDate     string `json:"target_date,omitempty" jsonschema:"Optional target date (YYYY-MM-DD) to compute the likelihood for"`
}

type backtestArgs struct {
	Snapshot   string `json:"snapshot,omitempty" jsonschema:"Name of the backlog snapshot in the cache directory. Default: backlog"`
	TeamID     string `json:"team_id" jsonschema:"ID of the team to backtest; the team must carry closed dates"`
	StartDate  string `json:"start_date" jsonschema:"Start of the backtest period (YYYY-MM-DD), at least 14 days ago"`
	EndDate    string `json:"end_date" jsonschema:"End of the backtest period (YYYY-MM-DD, exclusive), at least 14 days after start"`
	WindowDays int    `json:"window_days,omitempty" jsonschema:"Days of history before start used as throughput (1-365). Default: 30"`
}

type historyArgs struct {
	Snapshot  string `json:"snapshot,omitempty" jsonschema:"Name of the backlog snapshot in the cache directory. Default: backlog"`
	FeatureID string `json:"feature_id,omitempty" jsonschema:"Only return records of this feature"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Return at most this many of the latest records"`
}

func (s *Server) registerTools(server *sdk.Server) {
	sdk.AddTool(server, &sdk.Tool{
		Name: "forecast_when",
		Description: "Run a Monte-Carlo simulation to forecast WHEN a number of remaining items will be done, based solely on the team's historical daily THROUGHPUT.\n\n" +
			"Returns the number of days needed at 50/70/85/95% confidence and the full distribution. " +
			"DO NOT provide date ranges or probability estimates yourself if the tool fails or reports zero throughput.",
	}, handler("forecast_when", s.handleForecastWhen))

	sdk.AddTool(server, &sdk.Tool{
		Name:        "forecast_how_many",
		Description: "Run a Monte-Carlo simulation to forecast HOW MANY items a team completes within a number of days or until a target date. Confidence levels read as 'at least N items'.",
	}, handler("forecast_how_many", s.handleForecastHowMany))

	sdk.AddTool(server, &sdk.Tool{
		Name: "forecast_backlog",
		Description: "Forecast every feature in a backlog snapshot. Work is grouped per team and each team's feature WIP limits how many features it works on at once. " +
			"Features whose teams never completed anything get no forecast; this is expected, not an error.",
	}, handler("forecast_backlog", s.handleForecastBacklog))

	sdk.AddTool(server, &sdk.Tool{
		Name:        "forecast_manual",
		Description: "Answer 'if N items were left, when would the team finish, and how likely is a target date?'. Combines a When forecast with a How Many forecast up to the target date.",
	}, handler("forecast_manual", s.handleForecastManual))

	sdk.AddTool(server, &sdk.Tool{
		Name:        "backtest_how_many",
		Description: "Validate the forecasting model: forecast a past period from the throughput before it and compare with the items actually closed.",
	}, handler("backtest_how_many", s.handleBacktestHowMany))

	sdk.AddTool(server, &sdk.Tool{
		Name:        "forecast_history",
		Description: "List the feature forecasts archived by saved backlog runs, oldest first. Use it to see how a feature's forecast moved over time.",
	}, handler("forecast_history", s.handleForecastHistory))
}
