package solana

import "encoding/binary"

var SystemProgramID = MustParsePubkey("11111111111111111111111111111111")

// SystemTransfer builds a system-program transfer of lamports from one
// account to another. Used to top up custodial wallets from the funder.
func SystemTransfer(from, to Pubkey, lamports uint64) Instruction {
	// u32 instruction index (2 = Transfer) + u64 lamports, little endian.
	var data [12]byte
	binary.LittleEndian.PutUint32(data[0:4], 2)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{Pubkey: from, IsSigner: true, IsWritable: true},
			{Pubkey: to, IsSigner: false, IsWritable: true},
		},
		Data: data[:],
	}
}
