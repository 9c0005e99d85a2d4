// Package parser converts raw command arguments into simulation inputs.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/arenalab/arena-recorder/internal/sim"
	"github.com/arenalab/arena-recorder/internal/util"
	"github.com/arenalab/arena-recorder/pkg/core"
)

// ErrArgCount is returned when a command carries the wrong number of arguments.
var ErrArgCount = errors.New("wrong number of arguments")

// MaxDT is the largest dt :TICK: accepts, in seconds. The session applies
// its own configured max step on top.
const MaxDT = 1.0

// parseIntFromFloat parses a string that may be an integer or float into int64.
// Front ends that only have a number type send integers as "3.0".
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

// parseFinite parses a float and rejects NaN and infinities.
func parseFinite(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("parseFinite: %q is not a finite number", s)
	}
	return f, nil
}

// parseFlag accepts 0/1 (also "1.0") and true/false.
func parseFlag(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	v, err := parseIntFromFloat(s)
	if err != nil {
		return false, fmt.Errorf("parseFlag: %q is not a flag", s)
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("parseFlag: %q is not 0 or 1", s)
	}
}

// Parser provides pure []string -> input conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger       *slog.Logger
	defaultLabel string
}

// NewParser creates a new parser. defaultLabel is used when :START: omits one.
func NewParser(logger *slog.Logger, defaultLabel string) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		logger:       logger,
		defaultLabel: defaultLabel,
	}
}

// StartRequest is the parsed form of :START:.
type StartRequest struct {
	Label string
}

// ParseStart parses [label].
func (p *Parser) ParseStart(data []string) (StartRequest, error) {
	data = util.CleanArgs(data)
	if len(data) > 1 {
		return StartRequest{}, fmt.Errorf("%w: :START: takes at most 1, got %d", ErrArgCount, len(data))
	}
	req := StartRequest{Label: p.defaultLabel}
	if len(data) == 1 && data[0] != "" {
		req.Label = data[0]
	}
	return req, nil
}

// TickRequest is the parsed form of :TICK:. DT is zero when the fixed step applies.
type TickRequest struct {
	Input sim.Input
	DT    float64
}

// ParseTick parses mx my ax ay fire reload [dt].
func (p *Parser) ParseTick(data []string) (TickRequest, error) {
	var req TickRequest
	data = util.CleanArgs(data)
	if len(data) != 6 && len(data) != 7 {
		return req, fmt.Errorf("%w: :TICK: takes 6 or 7, got %d", ErrArgCount, len(data))
	}

	var nums [4]float64
	for i := range nums {
		v, err := parseFinite(data[i])
		if err != nil {
			return req, fmt.Errorf("error parsing tick arg %d: %w", i, err)
		}
		nums[i] = v
	}

	fire, err := parseFlag(data[4])
	if err != nil {
		return req, fmt.Errorf("error parsing fire: %w", err)
	}
	reload, err := parseFlag(data[5])
	if err != nil {
		return req, fmt.Errorf("error parsing reload: %w", err)
	}

	if len(data) == 7 {
		dt, err := parseFinite(data[6])
		if err != nil {
			return req, fmt.Errorf("error parsing dt: %w", err)
		}
		if dt < 0 || dt > MaxDT {
			return req, fmt.Errorf("error parsing dt: %v outside [0, %v]", dt, MaxDT)
		}
		req.DT = dt
	}

	req.Input = sim.Input{
		Move:   core.V(nums[0], nums[1]),
		Aim:    core.V(nums[2], nums[3]),
		Fire:   fire,
		Reload: reload,
	}

	p.logger.Debug("Parsed tick", "move", req.Input.Move, "aim", req.Input.Aim, "fire", fire, "reload", reload)
	return req, nil
}
