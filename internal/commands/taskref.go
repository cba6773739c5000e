package commands

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"

	"tasktrack/internal/apierror"
	"tasktrack/internal/service"
)

// TaskRef represents a parsed task reference: a 1-based position in list
// order or a task id.
type TaskRef struct {
	Raw     string
	Num     int
	Numeric bool
}

// Numbers below maxPosition that match no id are reported as out of range
// rather than as unknown ids.
const maxPosition = 1_000_000

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses exactly one task reference from args.
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}
	if len(args) > 1 {
		return TaskRef{}, fmt.Errorf("unexpected argument: %s", args[1])
	}
	return parseOne(args[0])
}

// ParseTaskRefs parses one or more task references.
func ParseTaskRefs(args []string) ([]TaskRef, error) {
	if len(args) == 0 {
		return nil, ErrTaskRefRequired
	}
	refs := make([]TaskRef, 0, len(args))
	for _, arg := range args {
		ref, err := parseOne(arg)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func parseOne(arg string) (TaskRef, error) {
	if arg == "" {
		return TaskRef{}, fmt.Errorf("invalid task reference: %q", arg)
	}
	if !isAllDigits(arg) {
		return TaskRef{Raw: arg}, nil
	}
	num, err := strconv.Atoi(arg)
	if err != nil {
		// Too long for a position; still usable as an id.
		return TaskRef{Raw: arg}, nil
	}
	return TaskRef{Raw: arg, Num: num, Numeric: true}, nil
}

// Resolve finds the task ref points at. A number within the list range is a
// position; anything else is matched against task ids.
func (r TaskRef) Resolve(tasks []service.Task) (service.Task, error) {
	if r.Numeric && r.Num >= 1 && r.Num <= len(tasks) {
		return tasks[r.Num-1], nil
	}
	for _, t := range tasks {
		if t.ID == r.Raw {
			return t, nil
		}
	}
	if r.Numeric && r.Num < maxPosition {
		return service.Task{}, apierror.Validationf("task number out of range: %d", r.Num)
	}
	return service.Task{}, apierror.NotFound(r.Raw)
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
