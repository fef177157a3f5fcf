package security

// ZeroBytes overwrites every byte of b with zero. Safe on nil slices.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ZeroBytesMulti zeroes several buffers in one call.
func ZeroBytesMulti(bufs ...[]byte) {
	for _, b := range bufs {
		ZeroBytes(b)
	}
}

// ZeroString clears the string variable pointed to by s. The backing
// array of a Go string is immutable, so this drops the reference and
// lets the value fall out of reach; callers holding secrets should
// prefer []byte buffers and ZeroBytes.
func ZeroString(s *string) {
	if s != nil {
		*s = ""
	}
}

// ZeroUint32s overwrites every element of v with zero.
func ZeroUint32s(v []uint32) {
	for i := range v {
		v[i] = 0
	}
}
