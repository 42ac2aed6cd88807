package tagframe

// synchsafe integers keep the high bit of every byte clear so a tag never
// contains a false MPEG sync pattern.

const maxSynchsafe = 1<<28 - 1

func decodeSynchsafe(b []byte) (int, bool) {
	n := 0
	for _, c := range b[:4] {
		if c&0x80 != 0 {
			return 0, false
		}
		n = n<<7 | int(c)
	}
	return n, true
}

func putSynchsafe(b []byte, n int) {
	b[0] = byte(n>>21) & 0x7F
	b[1] = byte(n>>14) & 0x7F
	b[2] = byte(n>>7) & 0x7F
	b[3] = byte(n) & 0x7F
}

// decodeUnsync removes the 0x00 stuffed after every 0xFF.
func decodeUnsync(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		out = append(out, b[i])
		if b[i] == 0xFF && i+1 < len(b) && b[i+1] == 0x00 {
			i++
		}
	}
	return out
}

// encodeUnsync inserts 0x00 after every 0xFF that is followed by 0x00, by a
// byte with its top three bits set, or by the end of the buffer.
func encodeUnsync(b []byte) []byte {
	out := make([]byte, 0, len(b)+len(b)/64)
	for i, c := range b {
		out = append(out, c)
		if c != 0xFF {
			continue
		}
		if i+1 == len(b) || b[i+1] == 0x00 || b[i+1]&0xE0 == 0xE0 {
			out = append(out, 0x00)
		}
	}
	return out
}
