package nmea

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	gonmea "github.com/adrianmo/go-nmea"

	"github.com/jengzang/antrak/internal/observability"
)

// Canonical sentence types required for a fix.
const (
	TypeRMC = gonmea.TypeRMC // fix start: time, date and coordinates
	TypeGGA = gonmea.TypeGGA // altitude
	TypeVTG = gonmea.TypeVTG // true track and speed over ground
	TypeGSA = gonmea.TypeGSA // fix mode and dilution of precision
)

// ErrParse is matched by every *ParseError.
var ErrParse = errors.New("nmea: parse failure")

// ParseError reports a line which could not be decoded.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("nmea: line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }

// Sentence is a decoded sentence with its talker independent type.
type Sentence struct {
	Type  string
	Value gonmea.Sentence
}

// Parse decodes one sentence. GPRMC and GNRMC both get type RMC.
// Proprietary sentences without a decoder of their own, such as PGRMZ,
// are kept undecoded with their maker specific type.
func Parse(line string) (Sentence, error) {
	return newParser().parse(line)
}

// parser wraps a go-nmea SentenceParser. It is not safe for concurrent use.
type parser struct {
	sp   gonmea.SentenceParser
	base gonmea.BaseSentence
}

func newParser() *parser {
	p := &parser{}
	p.sp.OnBaseSentence = func(s *gonmea.BaseSentence) error {
		p.base = *s
		return nil
	}
	return p
}

func (p *parser) parse(line string) (Sentence, error) {
	p.base = gonmea.BaseSentence{}
	s, err := p.sp.Parse(line)
	if err != nil {
		var unsupported *gonmea.NotSupportedError
		if !errors.As(err, &unsupported) || p.base.Talker != string(gonmea.ProprietarySentencePrefix) {
			return Sentence{}, err
		}
		s = p.base
	}
	return Sentence{Type: s.DataType(), Value: s}, nil
}

// ReadSentences reads sentences line by line. Blank lines are skipped.
// The first line which cannot be decoded yields a *ParseError and ends
// the sequence.
func ReadSentences(r io.Reader) iter.Seq2[Sentence, error] {
	return func(yield func(Sentence, error) bool) {
		sc := bufio.NewScanner(r)
		p := newParser()
		n := 0
		for sc.Scan() {
			n++
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			s, err := p.parse(line)
			if err != nil {
				observability.ParseErrors.Inc()
				yield(Sentence{}, &ParseError{Line: n, Text: line, Err: err})
				return
			}
			observability.SentencesParsed.Inc()
			if !yield(s, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(Sentence{}, fmt.Errorf("nmea: read: %w", err))
		}
	}
}
