package ackwindow

import "errors"

// ErrVLD is returned when a jumbo packet is malformed: a subpacket shorter
// than JumboSubpacketLen, or a non-tail subpacket carrying FlagLast.
var ErrVLD = errors.New("ackwindow: invalid jumbo packet layout")

// ErrLSN is returned when the last packet of the call arrives with a
// sequence number inconsistent with one already marked last.
var ErrLSN = errors.New("ackwindow: last packet sequence number mismatch")

// ErrLSA is returned when a non-last packet arrives at or beyond a
// sequence number already established as the call's last packet.
var ErrLSA = errors.New("ackwindow: sequence number exceeds established last packet")
