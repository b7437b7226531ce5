package database

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"modernc.org/sqlite"

	"github.com/jengzang/antrak/internal/spatial"
)

// ErrInvalidPattern is matched by errors for track queries which are not
// valid regular expressions.
var ErrInvalidPattern = errors.New("invalid pattern")

var (
	patternMu    sync.Mutex
	patternCache = map[string]*regexp.Regexp{}
)

// registerFunctions installs st_x(location), st_y(location) and
// iregexp(pattern, value). The modernc driver registers functions for all
// connections of the process.
func registerFunctions() error {
	codec := spatial.WKBCodec{}
	ordinate := func(i int) func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error) {
		return func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			if args[0] == nil {
				return nil, nil
			}
			data, ok := args[0].([]byte)
			if !ok {
				return nil, fmt.Errorf("geometry must be a blob, got %T", args[0])
			}
			p, err := codec.Decode(data)
			if err != nil {
				return nil, err
			}
			return p[i], nil
		}
	}

	if err := sqlite.RegisterDeterministicScalarFunction("st_x", 1, ordinate(0)); err != nil {
		return err
	}
	if err := sqlite.RegisterDeterministicScalarFunction("st_y", 1, ordinate(1)); err != nil {
		return err
	}
	return sqlite.RegisterDeterministicScalarFunction("iregexp", 2, iregexp)
}

// iregexp matches value against pattern ignoring case. A NULL value never
// matches.
func iregexp(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	pattern, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("iregexp: pattern must be text, got %T", args[0])
	}
	value, ok := args[1].(string)
	if !ok {
		return int64(0), nil
	}
	re, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	if re.MatchString(value) {
		return int64(1), nil
	}
	return int64(0), nil
}

// CheckPattern reports whether pattern can be used with iregexp.
func CheckPattern(pattern string) error {
	_, err := compilePattern(pattern)
	return err
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	patternMu.Lock()
	defer patternMu.Unlock()

	if re, ok := patternCache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, pattern, err)
	}
	if len(patternCache) >= 256 {
		clear(patternCache)
	}
	patternCache[pattern] = re
	return re, nil
}
