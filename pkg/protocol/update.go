package protocol

// Update replaces the rendered HTML of one component instance. HID is
// the hydration ID the thin client uses to locate the fragment in the
// DOM (data-mm attribute on the fragment root).
type Update struct {
	HID  string
	HTML string
}

// UpdateFrame represents a batch of updates with a sequence number.
// All instances dirtied by one environment event ship in one frame.
type UpdateFrame struct {
	Seq     uint64
	Updates []Update
}

// EncodeUpdates encodes an update frame to bytes.
func EncodeUpdates(uf *UpdateFrame) []byte {
	e := NewEncoder()
	EncodeUpdatesTo(e, uf)
	return e.Bytes()
}

// EncodeUpdatesTo encodes an update frame using the provided encoder.
func EncodeUpdatesTo(e *Encoder, uf *UpdateFrame) {
	e.WriteUvarint(uf.Seq)
	e.WriteUvarint(uint64(len(uf.Updates)))

	for i := range uf.Updates {
		e.WriteString(uf.Updates[i].HID)
		e.WriteString(uf.Updates[i].HTML)
	}
}

// DecodeUpdates decodes an update frame from bytes.
func DecodeUpdates(data []byte) (*UpdateFrame, error) {
	d := NewDecoder(data)
	return DecodeUpdatesFrom(d)
}

// DecodeUpdatesFrom decodes an update frame from a decoder.
func DecodeUpdatesFrom(d *Decoder) (*UpdateFrame, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}

	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}

	updates := make([]Update, count)
	for i := 0; i < count; i++ {
		updates[i].HID, err = d.ReadString()
		if err != nil {
			return nil, err
		}
		updates[i].HTML, err = d.ReadString()
		if err != nil {
			return nil, err
		}
	}

	return &UpdateFrame{
		Seq:     seq,
		Updates: updates,
	}, nil
}

// NewUpdate creates an Update for the given fragment.
func NewUpdate(hid, html string) Update {
	return Update{HID: hid, HTML: html}
}

// Ack is sent by the client to acknowledge received updates. It lets
// the server detect client lag and bound its unacked-update window.
type Ack struct {
	LastSeq uint64 // Last received update sequence number
	Window  uint64 // Receive window (how many more updates the client can take)
}

// DefaultAckWindow is the default receive window size.
const DefaultAckWindow = 100

// EncodeAck encodes an Ack to bytes.
func EncodeAck(ack *Ack) []byte {
	e := NewEncoder()
	EncodeAckTo(e, ack)
	return e.Bytes()
}

// EncodeAckTo encodes an Ack using the provided encoder.
func EncodeAckTo(e *Encoder, ack *Ack) {
	e.WriteUvarint(ack.LastSeq)
	e.WriteUvarint(ack.Window)
}

// DecodeAck decodes an Ack from bytes.
func DecodeAck(data []byte) (*Ack, error) {
	d := NewDecoder(data)
	return DecodeAckFrom(d)
}

// DecodeAckFrom decodes an Ack from a decoder.
func DecodeAckFrom(d *Decoder) (*Ack, error) {
	lastSeq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}

	window, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}

	return &Ack{
		LastSeq: lastSeq,
		Window:  window,
	}, nil
}

// NewAck creates a new Ack with the given sequence and window.
func NewAck(lastSeq, window uint64) *Ack {
	return &Ack{
		LastSeq: lastSeq,
		Window:  window,
	}
}
