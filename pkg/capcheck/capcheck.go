package capcheck

import (
	"fmt"

	"github.com/genzj/warpconnect/pkg/types"
	"golang.org/x/sys/unix"
)

// capNetAdmin is CAP_NET_ADMIN's bit position, per
// linux/include/uapi/linux/capability.h.
const capNetAdmin = 12

// Check verifies the calling process holds CAP_NET_ADMIN in its effective
// capability set. Returns a *types.CapabilityError when the capability is
// absent or the kernel query itself fails.
func Check() error {
	hdr := unix.CapUserHeader{Version: unix.LINUX_CAPABILITY_VERSION_3, Pid: 0}
	var data [2]unix.CapUserData

	if err := unix.Capget(&hdr, &data[0]); err != nil {
		return &types.CapabilityError{Capability: "CAP_NET_ADMIN", Err: fmt.Errorf("capget: %w", err)}
	}

	if !hasEffective(data, capNetAdmin) {
		return &types.CapabilityError{Capability: "CAP_NET_ADMIN", Err: fmt.Errorf("not present in effective capability set")}
	}
	return nil
}

// hasEffective reports whether cap is set in data's effective set. Split out
// from Check so the bit arithmetic is testable without a real capget(2) call.
func hasEffective(data [2]unix.CapUserData, cap int) bool {
	idx, bit := cap/32, uint(cap%32)
	var effective uint32
	if idx == 0 {
		effective = data[0].Effective
	} else {
		effective = data[1].Effective
	}
	return effective&(1<<bit) != 0
}
