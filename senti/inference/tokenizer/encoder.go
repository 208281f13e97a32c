package tokenizer

// Lookup resolves a normalized token to its vocabulary index
type Lookup interface {
	Lookup(token string) (int64, bool)
}

// Encode maps tokens to vocabulary ids and fits them to exactly maxLen slots.
// Unknown tokens become 0. Short sequences are padded with 0 on the left;
// long ones keep only their last maxLen ids.
func Encode(tokens []string, vocab Lookup, maxLen int) []int64 {
	if maxLen <= 0 {
		return []int64{}
	}
	out := make([]int64, maxLen)
	kept := tokens
	if len(kept) > maxLen {
		kept = kept[len(kept)-maxLen:]
	}
	offset := maxLen - len(kept)
	for i, tok := range kept {
		if vocab == nil {
			break
		}
		if id, ok := vocab.Lookup(tok); ok {
			out[offset+i] = id
		}
	}
	return out
}
