package avr

import "time"

// PageBytes is the flash page size shifted through PROG_PAGELOAD.
const PageBytes = 1024 / 8

// Settle times are fixed for the ATmega162 family; completion of chip erase
// and page writes is not polled.
const (
	EraseDelay     = 10 * time.Millisecond
	PageWriteDelay = 10 * time.Millisecond
)

// progEnableKey unlocks programming mode when shifted through PROG_ENABLE.
const progEnableKey = 0xA370

// PROG_COMMANDS opcodes. Each is a 15-bit value; the low byte carries data
// where noted.
const (
	cmdEnterFlashWrite   = 0x2310
	cmdEnterFlashRead    = 0x2302
	cmdEnterFuseWrite    = 0x2340
	cmdEnterLockWrite    = 0x2320
	cmdEnterFuseLockRead = 0x2304

	cmdLoadAddrHigh = 0x0700 // | address bits 15:8
	cmdLoadAddrLow  = 0x0300 // | address bits 7:0
	cmdLoadDataLow  = 0x1300 // | data byte

	cmdFusePoll = 0x3700
	cmdLockPoll = 0x3300

	cmdReadArm      = 0x3a00
	cmdReadExtended = 0x3e00
	cmdReadHigh     = 0x3200
	cmdReadLow      = 0x3600
	cmdReadLock     = 0x3700
)

var (
	chipEraseSeq = []uint16{0x2380, 0x3180, 0x3380, 0x3380}
	pageWriteSeq = []uint16{0x3700, 0x3500, 0x3700, 0x3700}
	exitProgSeq  = []uint16{0x2300, 0x3300}

	extFuseWriteSeq  = []uint16{0x3b00, 0x3900, 0x3b00, 0x3b00}
	highFuseWriteSeq = []uint16{0x3700, 0x3500, 0x3700, 0x3700}
	lowFuseWriteSeq  = []uint16{0x3300, 0x3100, 0x3300, 0x3300}
	lockWriteSeq     = []uint16{0x3300, 0x3100, 0x3300, 0x3300}
)

// Lock bits are loaded with the two unused upper bits set.
const lockUnusedBits = 0xC0

// pollDoneMask selects bit 9 of the PROG_COMMANDS register (bit 1 of the
// second returned byte), set once a fuse or lock write has finished.
const pollDoneMask = 0x02
