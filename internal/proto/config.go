package proto

// SwitchConfig carries the switch-wide configuration flags.
type SwitchConfig struct {
	Flags       uint16
	MissSendLen uint16
}

func (c SwitchConfig) RequiredSize() int { return 4 }

func (c SwitchConfig) Encode(into []byte) {
	newWriter(into).
		u16(c.Flags).
		u16(c.MissSendLen)
}

func readSwitchConfig(r *Reader) SwitchConfig {
	return SwitchConfig{Flags: r.u16(), MissSendLen: r.u16()}
}

// SetConfig replaces the switch configuration.
type SetConfig struct {
	SwitchConfig
}

func (*SetConfig) Type() MsgType { return TypeSetConfig }

func decodeSwitchConfig(r *Reader) (*SetConfig, error) {
	return &SetConfig{readSwitchConfig(r)}, r.Err()
}

// GetConfigReply reports the switch configuration.
type GetConfigReply struct {
	SwitchConfig
}

func (*GetConfigReply) Type() MsgType { return TypeGetConfigReply }

func decodeGetConfigReply(r *Reader) (*GetConfigReply, error) {
	return &GetConfigReply{readSwitchConfig(r)}, r.Err()
}

const (
	idStringLength    = 64
	featuresReplySize = 16 + 3*idStringLength
)

// FeaturesReply describes one slot of the device.
type FeaturesReply struct {
	DeviceID     uint32
	PortNum      uint16
	TableNum     uint16
	Capabilities uint32
	SlotID       uint16
	VendorID     string
	FirmwareID   string
	LookupID     string
}

func (*FeaturesReply) Type() MsgType     { return TypeFeaturesReply }
func (*FeaturesReply) RequiredSize() int { return featuresReplySize }

func (f *FeaturesReply) Encode(into []byte) {
	newWriter(into).
		u32(f.DeviceID).
		u16(f.PortNum).
		u16(f.TableNum).
		u32(f.Capabilities).
		u16(f.SlotID).
		pad(2).
		str(f.VendorID, idStringLength).
		str(f.FirmwareID, idStringLength).
		str(f.LookupID, idStringLength)
}

func decodeFeaturesReply(r *Reader) (*FeaturesReply, error) {
	f := &FeaturesReply{
		DeviceID:     r.u32(),
		PortNum:      r.u16(),
		TableNum:     r.u16(),
		Capabilities: r.u32(),
		SlotID:       r.u16(),
	}
	r.skip(2)
	f.VendorID = fixedString(r.bytes(idStringLength))
	f.FirmwareID = fixedString(r.bytes(idStringLength))
	f.LookupID = fixedString(r.bytes(idStringLength))
	return f, r.Err()
}
