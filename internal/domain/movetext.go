package domain

import (
	"strconv"
	"strings"
)

// MoveText formats SAN moves as numbered move text: "1. e4 e5 2. Nf3".
// blackFirst numbers a game that starts with black to move ("1... e5 2. Nf3").
func MoveText(san []string, blackFirst bool) string {
	var b strings.Builder
	offset := 0
	if blackFirst {
		offset = 1
	}
	for i, mv := range san {
		idx := i + offset
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		if idx%2 == 0 {
			b.WriteString(strconv.Itoa(idx/2 + 1))
			b.WriteString(". ")
		} else if i == 0 {
			b.WriteString(strconv.Itoa(idx/2 + 1))
			b.WriteString("... ")
		}
		b.WriteString(strings.TrimSpace(mv))
	}
	return b.String()
}

// AppendMoveText extends existing move text with the SAN of ply (1-based, counted from the start position).
func AppendMoveText(text string, san string, ply int, blackFirst bool) string {
	idx := ply - 1
	if blackFirst {
		idx++
	}
	var b strings.Builder
	b.WriteString(text)
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	switch {
	case idx%2 == 0:
		b.WriteString(strconv.Itoa(idx/2 + 1))
		b.WriteString(". ")
	case ply == 1:
		b.WriteString(strconv.Itoa(idx/2 + 1))
		b.WriteString("... ")
	}
	b.WriteString(strings.TrimSpace(san))
	return b.String()
}
