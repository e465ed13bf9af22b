package opt

// ParseGoID extracts the goroutine id from the header of a runtime.Stack
// dump ("goroutine 123 [running]:"). It returns 0 if buf is not such a header.
func ParseGoID(buf []byte) int64 {
	const prefix = "goroutine "
	if len(buf) < len(prefix) || string(buf[:len(prefix)]) != prefix {
		return 0
	}
	var id int64
	for _, c := range buf[len(prefix):] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}
