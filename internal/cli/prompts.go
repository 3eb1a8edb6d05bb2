package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"

	"scanner-approval/internal/finalizer"
	"scanner-approval/internal/types"
)

const dateLayout = "2006-01-02"

// PromptDate asks for the scanner date, defaulting to today.
func PromptDate() (time.Time, error) {
	var dateStr string
	prompt := &survey.Input{
		Message: "Scanner date (YYYY-MM-DD):",
		Help:    "The trading day whose scanner results should be loaded.",
		Default: time.Now().Format(dateLayout),
	}
	err := survey.AskOne(prompt, &dateStr, survey.WithValidator(func(val interface{}) error {
		_, err := parseDate(val.(string))
		return err
	}))
	if err != nil {
		return time.Time{}, err
	}
	return parseDate(dateStr)
}

// Selection menu entries that are not rows.
const (
	menuProceed = "→ Finalize selected rows"
	menuReload  = "↻ Load another date"
	menuQuit    = "✗ Quit"
)

// SelectChoice is the operator's pick from the selection menu. Row is the
// row index when Kind is ChoiceRow.
type SelectChoice struct {
	Kind ChoiceKind
	Row  int
}

type ChoiceKind int

const (
	ChoiceRow ChoiceKind = iota
	ChoiceProceed
	ChoiceReload
	ChoiceQuit
)

// PromptSelectionMenu lists every row with its current action.
func PromptSelectionMenu(rows []types.ScannerRow, choices []types.Action) (SelectChoice, error) {
	options := make([]string, 0, len(rows)+3)
	for i, r := range rows {
		options = append(options, fmt.Sprintf("%d. %-12s [%s]", i+1, r.Symbol, choices[i]))
	}
	options = append(options, menuProceed, menuReload, menuQuit)

	var picked int
	prompt := &survey.Select{
		Message:  "Choose a row to set its action, or finalize:",
		Options:  options,
		PageSize: 15,
	}
	if err := survey.AskOne(prompt, &picked); err != nil {
		return SelectChoice{}, err
	}
	switch {
	case picked < len(rows):
		return SelectChoice{Kind: ChoiceRow, Row: picked}, nil
	case options[picked] == menuProceed:
		return SelectChoice{Kind: ChoiceProceed}, nil
	case options[picked] == menuReload:
		return SelectChoice{Kind: ChoiceReload}, nil
	default:
		return SelectChoice{Kind: ChoiceQuit}, nil
	}
}

// PromptRowAction asks for the action on a single row.
func PromptRowAction(row types.ScannerRow, current types.Action) (types.Action, error) {
	var answer string
	prompt := &survey.Select{
		Message: fmt.Sprintf("Action for %s:", row.Symbol),
		Options: []string{"SKIP", "BUY", "SELL", "BOTH"},
		Default: current.String(),
		Help:    truncate(row.Rationale, 200),
	}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return current, err
	}
	return types.ParseAction(answer), nil
}

// PromptParams asks for the finalization parameters, starting from defaults.
func PromptParams(defaults finalizer.Params) (finalizer.Params, error) {
	p := defaults

	var metric string
	if err := survey.AskOne(&survey.Select{
		Message: "Volatility metric for the price offset:",
		Options: []string{string(types.MetricTrueRange), string(types.MetricATR)},
		Default: string(defaults.Metric),
	}, &metric); err != nil {
		return defaults, err
	}
	p.Metric = types.Metric(metric)

	var mult string
	if err := survey.AskOne(&survey.Input{
		Message: "Multiplier:",
		Help:    "Offset from the open is metric x multiplier, rounded to 0.1.",
		Default: formatNumber(defaults.Multiplier),
	}, &mult, survey.WithValidator(func(val interface{}) error {
		_, err := parseNonNegative(val.(string))
		return err
	})); err != nil {
		return defaults, err
	}
	p.Multiplier, _ = parseNonNegative(mult)

	var strategy string
	if err := survey.AskOne(&survey.Select{
		Message: "Quantity sizing:",
		Options: []string{string(types.StrategyOneEach), string(types.StrategyEqualDistribution)},
		Default: string(defaults.Policy.Strategy),
	}, &strategy); err != nil {
		return defaults, err
	}
	p.Policy.Strategy = types.Strategy(strategy)

	if p.Policy.Strategy == types.StrategyEqualDistribution {
		var capital string
		def := ""
		if defaults.Policy.Capital > 0 {
			def = formatNumber(defaults.Policy.Capital)
		}
		if err := survey.AskOne(&survey.Input{
			Message: "Capital to split across the batch:",
			Default: def,
		}, &capital, survey.WithValidator(func(val interface{}) error {
			_, err := parsePositive(val.(string))
			return err
		})); err != nil {
			return defaults, err
		}
		p.Policy.Capital, _ = parsePositive(capital)
	}
	return p, p.Validate()
}

type ReviewChoice int

const (
	ReviewConfirm ReviewChoice = iota
	ReviewEdit
	ReviewBack
	ReviewReset
)

// PromptReviewAction asks what to do with the finalized batch.
func PromptReviewAction() (ReviewChoice, error) {
	options := []string{
		"Place these orders",
		"Edit an order",
		"Back to selection",
		"Discard and start over",
	}
	var picked int
	if err := survey.AskOne(&survey.Select{
		Message: "Review:",
		Options: options,
	}, &picked); err != nil {
		return ReviewBack, err
	}
	return ReviewChoice(picked), nil
}

// EditInput is the raw operator input for one finalized order. Empty
// strings keep the existing value.
type EditInput struct {
	Index     int
	BuyPrice  string
	SellPrice string
	Qty       string
}

// PromptEdit asks which order to change and for its new values.
func PromptEdit(orders []types.FinalizedOrder) (EditInput, error) {
	options := make([]string, len(orders))
	for i, o := range orders {
		options[i] = fmt.Sprintf("%d. %s %s buy %s sell %s qty %d",
			i+1, o.Row.Symbol, o.Action, formatPrice(o.BuyPrice), formatPrice(o.SellPrice), o.Quantity)
	}
	in := EditInput{}
	if err := survey.AskOne(&survey.Select{Message: "Order to edit:", Options: options}, &in.Index); err != nil {
		return in, err
	}

	o := orders[in.Index]
	questions := []*survey.Question{}
	for _, side := range o.Action.Sides() {
		name, label := "buy", "Buy"
		if side == types.SideSell {
			name, label = "sell", "Sell"
		}
		questions = append(questions, &survey.Question{
			Name: name,
			Prompt: &survey.Input{
				Message: fmt.Sprintf("%s limit price (blank keeps %s):", label, formatPrice(o.Price(side))),
			},
			Validate: func(val interface{}) error {
				_, err := parseOptionalFloat(val.(string))
				return err
			},
		})
	}
	questions = append(questions, &survey.Question{
		Name:   "qty",
		Prompt: &survey.Input{Message: fmt.Sprintf("Quantity (blank keeps %d):", o.Quantity)},
		Validate: func(val interface{}) error {
			_, err := parseOptionalInt(val.(string))
			return err
		},
	})

	answers := struct {
		Buy  string `survey:"buy"`
		Sell string `survey:"sell"`
		Qty  string `survey:"qty"`
	}{}
	if err := survey.Ask(questions, &answers); err != nil {
		return in, err
	}
	in.BuyPrice, in.SellPrice, in.Qty = answers.Buy, answers.Sell, answers.Qty
	return in, nil
}

// PromptCredentials returns the API key and secret, preferring
// KITE_API_KEY and KITE_API_SECRET when they are set.
func PromptCredentials() (apiKey, apiSecret string, err error) {
	apiKey = strings.TrimSpace(os.Getenv("KITE_API_KEY"))
	apiSecret = strings.TrimSpace(os.Getenv("KITE_API_SECRET"))

	if apiKey == "" {
		if err := survey.AskOne(&survey.Input{Message: "Kite API key:"}, &apiKey, survey.WithValidator(survey.Required)); err != nil {
			return "", "", err
		}
	}
	if apiSecret == "" {
		if err := survey.AskOne(&survey.Password{Message: "Kite API secret:"}, &apiSecret, survey.WithValidator(survey.Required)); err != nil {
			return "", "", err
		}
	}
	return strings.TrimSpace(apiKey), strings.TrimSpace(apiSecret), nil
}

// PromptRequestToken asks for the redirect URL or raw request token.
func PromptRequestToken() (string, error) {
	var input string
	err := survey.AskOne(&survey.Input{
		Message: "Paste the redirect URL or request token:",
		Help:    "After logging in, the browser is redirected to a URL containing request_token=...",
	}, &input, survey.WithValidator(func(val interface{}) error {
		_, err := ParseRequestToken(val.(string))
		return err
	}))
	if err != nil {
		return "", err
	}
	return ParseRequestToken(input)
}

// PromptCancel lets the operator pick working orders to cancel.
func PromptCancel(orders []types.OrderRecord) ([]types.OrderRecord, error) {
	options := make([]string, len(orders))
	for i, o := range orders {
		options[i] = fmt.Sprintf("%s %s %s %d @ %s [%s]", o.OrderID, o.Symbol, o.Side, o.Qty, formatPrice(o.Price), o.Status)
	}
	var picked []int
	if err := survey.AskOne(&survey.MultiSelect{
		Message:  "Orders to cancel:",
		Options:  options,
		PageSize: 15,
	}, &picked); err != nil {
		return nil, err
	}
	out := make([]types.OrderRecord, 0, len(picked))
	for _, i := range picked {
		out = append(out, orders[i])
	}
	return out, nil
}

// Confirm asks a yes/no question, defaulting to no.
func Confirm(message string) (bool, error) {
	ok := false
	err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok)
	return ok, err
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now(), nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, errors.New("invalid date format, use YYYY-MM-DD")
	}
	return t, nil
}

func parseNonNegative(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if v < 0 {
		return 0, errors.New("value must not be negative")
	}
	return v, nil
}

func parsePositive(s string) (float64, error) {
	v, err := parseNonNegative(s)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, errors.New("value must be positive")
	}
	return v, nil
}

func parseOptionalFloat(s string) (*float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	v, err := parsePositive(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseOptionalInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%q is not a whole number", s)
	}
	if v < 1 {
		return nil, errors.New("quantity must be at least 1")
	}
	return &v, nil
}
