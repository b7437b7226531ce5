package nmea

import "iter"

// FixGroup maps a canonical sentence type to the sentence of that type
// seen within one fix epoch.
type FixGroup map[string]Sentence

// Assembler groups sentences into fix groups.
//
// Every RMC sentence increments the fix counter before it is used as the
// group key, so a group spans from one RMC sentence up to the next one.
// Sentences seen before the first RMC form group 0. A repeated sentence
// type within a group replaces the earlier sentence.
type Assembler struct {
	counter int
	key     int
	group   FixGroup
}

// Push adds a sentence. When the sentence starts a new group, the
// previous group is returned with ok set.
func (a *Assembler) Push(s Sentence) (FixGroup, bool) {
	if s.Type == TypeRMC {
		a.counter++
	}

	var done FixGroup
	if a.group != nil && a.key != a.counter {
		done = a.group
		a.group = nil
	}
	if a.group == nil {
		a.group = make(FixGroup, 4)
		a.key = a.counter
	}
	a.group[s.Type] = s
	return done, done != nil
}

// Flush returns the group under construction, if any.
func (a *Assembler) Flush() (FixGroup, bool) {
	g := a.group
	a.group = nil
	return g, g != nil
}

// Counter returns the number of fix start sentences seen so far.
func (a *Assembler) Counter() int { return a.counter }

// Assemble lazily groups a sentence sequence. An error from the input is
// passed on and ends the sequence; the partial group is discarded then.
func Assemble(sentences iter.Seq2[Sentence, error]) iter.Seq2[FixGroup, error] {
	return func(yield func(FixGroup, error) bool) {
		var a Assembler
		for s, err := range sentences {
			if err != nil {
				yield(nil, err)
				return
			}
			if g, ok := a.Push(s); ok {
				if !yield(g, nil) {
					return
				}
			}
		}
		if g, ok := a.Flush(); ok {
			yield(g, nil)
		}
	}
}
