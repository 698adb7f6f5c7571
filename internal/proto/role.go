package proto

import "fmt"

// ControllerRole is the role a controller holds on, or requests from, the
// switch.
type ControllerRole uint8

const (
	RoleNoChange ControllerRole = 0
	RoleEqual    ControllerRole = 1
	RoleMaster   ControllerRole = 2
	RoleSlave    ControllerRole = 3
)

func (r ControllerRole) String() string {
	switch r {
	case RoleNoChange:
		return "NOCHANGE"
	case RoleEqual:
		return "EQUAL"
	case RoleMaster:
		return "MASTER"
	case RoleSlave:
		return "SLAVE"
	}
	return fmt.Sprintf("ControllerRole(%d)", uint8(r))
}

// RoleBody is shared by role requests and replies.
type RoleBody struct {
	Role         ControllerRole
	GenerationID uint64
}

func (b RoleBody) RequiredSize() int { return 16 }

func (b RoleBody) Encode(into []byte) {
	newWriter(into).
		u8(uint8(b.Role)).
		pad(7).
		u64(b.GenerationID)
}

func readRoleBody(r *Reader) RoleBody {
	b := RoleBody{Role: ControllerRole(r.u8())}
	r.skip(7)
	b.GenerationID = r.u64()
	return b
}

// RoleRequest asks the switch to assign a role to the sending connection.
type RoleRequest struct {
	RoleBody
}

func (*RoleRequest) Type() MsgType { return TypeRoleRequest }

func decodeRoleRequest(r *Reader) (*RoleRequest, error) {
	return &RoleRequest{readRoleBody(r)}, r.Err()
}

// RoleReply reports the role held after a RoleRequest.
type RoleReply struct {
	RoleBody
}

func (*RoleReply) Type() MsgType { return TypeRoleReply }

func decodeRoleReply(r *Reader) (*RoleReply, error) {
	return &RoleReply{readRoleBody(r)}, r.Err()
}
