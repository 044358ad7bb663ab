package store

import "strings"

// StdoutLinesStream consumes a Subscription and re-emits only the Stdout
// records, splitting on newlines so a caller always receives complete
// lines even when a producer pushed partial chunks. Any trailing partial
// line retained across calls is flushed once the live channel closes.
func StdoutLinesStream(sub Subscription) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		var pending strings.Builder

		emit := func(chunk string) {
			pending.WriteString(chunk)
			for {
				s := pending.String()
				idx := strings.IndexByte(s, '\n')
				if idx < 0 {
					break
				}
				out <- strings.TrimSuffix(s[:idx], "\r")
				pending.Reset()
				pending.WriteString(s[idx+1:])
			}
		}

		for _, r := range sub.History {
			if r.Kind == RecordStdout {
				emit(r.Line)
			}
		}
		for r := range sub.Live {
			if r.Kind == RecordStdout {
				emit(r.Line)
			}
		}
		if pending.Len() > 0 {
			out <- pending.String()
		}
	}()
	return out
}
