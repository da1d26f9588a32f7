package irc

// maxMessageSize bounds one wire message including the trailing CRLF, so
// handlers never see more than maxMessageSize-2 bytes of payload.
const maxMessageSize = 512

// lineBuffer reassembles CRLF-terminated messages from arbitrarily
// chunked reads. The buffer is fixed: input that fills it without
// completing a message is rejected rather than grown.
type lineBuffer struct {
	buf   [maxMessageSize]byte
	fill  int
	sawCR bool
}

// feed appends freshly read bytes and invokes dispatch once per completed
// message, in arrival order. A dispatch error aborts feeding and is
// returned as-is. Framing violations return errLoneCarriageReturn or
// errMessageTooLong; no partial message is ever dispatched.
func (b *lineBuffer) feed(data []byte, dispatch func(line []byte) error) error {
	for len(data) > 0 {
		n := copy(b.buf[b.fill:], data)
		data = data[n:]
		end := b.fill + n

		start := 0
		for i := b.fill; i < end; i++ {
			c := b.buf[i]
			if b.sawCR {
				if c != '\n' {
					return errLoneCarriageReturn
				}
				b.sawCR = false
				if err := dispatch(b.buf[start : i-1]); err != nil {
					return err
				}
				start = i + 1
			} else if c == '\r' {
				b.sawCR = true
			}
		}

		switch {
		case start == end:
			b.fill = 0
		case start == 0 && end == len(b.buf):
			return errMessageTooLong
		default:
			copy(b.buf[:], b.buf[start:end])
			b.fill = end - start
		}
	}
	return nil
}
