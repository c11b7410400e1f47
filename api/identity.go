package emucore

// RomFormat identifies the container format of the loaded title.
type RomFormat int

const (
	FormatUnknown RomFormat = iota
	FormatINES
	FormatUNIF
	FormatFDS
	FormatNSF // Sound file, has no gameplay to resume
)

// String returns the display name of the format.
func (f RomFormat) String() string {
	switch f {
	case FormatINES:
		return "iNES"
	case FormatUNIF:
		return "UNIF"
	case FormatFDS:
		return "FDS"
	case FormatNSF:
		return "NSF"
	default:
		return "Unknown"
	}
}

// Resumable reports whether a session of this format can be bundled
// into a resume archive.
func (f RomFormat) Resumable() bool {
	return f != FormatNSF
}

// UnknownMapper marks a mapper or sub-mapper id absent from a snapshot.
const UnknownMapper = -1

// RomIdentity describes the ROM a machine is running.
type RomIdentity struct {
	SHA1        string // 40 hex characters, empty when nothing is loaded
	MapperID    int
	SubMapperID int
	RomName     string // File name of the ROM, with extension
	Format      RomFormat
}

// Loaded reports whether the identity describes a loaded ROM.
func (id RomIdentity) Loaded() bool {
	return id.SHA1 != ""
}
