package main

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// staffKey prints the bcrypt hash of the provided staff access key. The hash
// goes into the STAFF_KEY_HASH setting; the key itself is never stored.
func (cli *commandLine) staffKey(key []byte) error {
	hash, err := bcrypt.GenerateFromPassword(key, bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Printf("STAFF_KEY_HASH=%s\n", hash)
	return nil
}
