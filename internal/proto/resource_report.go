package proto

const resourceReportSize = 16 + MaxTableTypes*8

// TableCapacity describes the tables of one TableType a slot can hold.
type TableCapacity struct {
	Type      TableType
	TableNum  uint8
	KeyLength uint16
	TotalSize uint32
}

// ResourceReport describes the resources of one slot. One report is sent per
// slot when the controller requests the switch configuration.
type ResourceReport struct {
	ResourceType uint8
	SlotID       uint16
	CounterNum   uint32
	MeterNum     uint32
	GroupNum     uint32
	Tables       [MaxTableTypes]TableCapacity
}

func (*ResourceReport) Type() MsgType     { return TypeResourceReport }
func (*ResourceReport) RequiredSize() int { return resourceReportSize }

func (rr *ResourceReport) Encode(into []byte) {
	w := newWriter(into).
		u8(rr.ResourceType).
		pad(1).
		u16(rr.SlotID).
		u32(rr.CounterNum).
		u32(rr.MeterNum).
		u32(rr.GroupNum)
	for _, t := range rr.Tables {
		w.u8(uint8(t.Type)).
			u8(t.TableNum).
			u16(t.KeyLength).
			u32(t.TotalSize)
	}
}

func decodeResourceReport(r *Reader) (*ResourceReport, error) {
	rr := &ResourceReport{ResourceType: r.u8()}
	r.skip(1)
	rr.SlotID = r.u16()
	rr.CounterNum = r.u32()
	rr.MeterNum = r.u32()
	rr.GroupNum = r.u32()
	for i := range rr.Tables {
		rr.Tables[i] = TableCapacity{
			Type:      TableType(r.u8()),
			TableNum:  r.u8(),
			KeyLength: r.u16(),
			TotalSize: r.u32(),
		}
	}
	return rr, r.Err()
}
