package page

func CreateTestPage(data []byte) *Page {
	p := &Page{}
	if len(data) > len(p.Data) {
		data = data[:len(p.Data)] // Truncate to fit
	}
	copy(p.Data[:], data)
	return p
}
