// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

// Radix trees
//
// Radix trees are used to efficiently store location records by IP networks.
// The trees are used as an index to an array of locations, so the number of
// entries per table is limited. Methods are not thread-safe: a table is built
// once at configuration load time and then only read.

package geo

import (
	"net"

	"github.com/kentik/patricia"
	"github.com/kentik/patricia/uint8_tree"
	"github.com/pkg/errors"
)

const (
	ipv4Bits = 32
	ipv6Bits = 128

	// The trees index the location array with uint8 tags.
	maxTableEntries = 256
)

// Entry associates an IP network to its location record.
type Entry struct {
	CIDR     string
	Location Location
}

// TableResolver resolves addresses against a fixed table of IP networks. The
// most specific matching network wins.
type TableResolver struct {
	treeV4    *uint8_tree.TreeV4
	treeV6    *uint8_tree.TreeV6
	locations []Location
}

// NewTableResolver compiles the table entries into the lookup trees.
func NewTableResolver(entries []Entry) (*TableResolver, error) {
	r := &TableResolver{}
	for _, entry := range entries {
		if err := r.add(entry); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *TableResolver) add(entry Entry) error {
	if len(r.locations) >= maxTableEntries {
		return errors.Errorf("number of geo entries exceeds `%d`", maxTableEntries)
	}

	ipv4, ipv6, err := patricia.ParseIPFromString(entry.CIDR)
	if err != nil {
		return errors.Wrapf(err, "could not parse the geo entry network `%s`", entry.CIDR)
	}

	// Assume the network is not already in the tree by taking a new location
	// index in the array. The match function is only called when a tag already
	// exists for the network; it then reuses the existing tag and overwrites
	// the location.
	tag := len(r.locations)
	var added bool
	onExisting := func(current uint8, _ uint8) bool {
		r.locations[current] = entry.Location
		return true
	}
	switch {
	case ipv4 != nil:
		if r.treeV4 == nil {
			r.treeV4 = uint8_tree.NewTreeV4()
		}
		added, _, err = r.treeV4.Add(*ipv4, uint8(tag), onExisting)
	case ipv6 != nil:
		if r.treeV6 == nil {
			r.treeV6 = uint8_tree.NewTreeV6()
		}
		added, _, err = r.treeV6.Add(*ipv6, uint8(tag), onExisting)
	default:
		return errors.Errorf("could not parse the geo entry network `%s`", entry.CIDR)
	}
	if err != nil {
		return err
	}
	if added {
		r.locations = append(r.locations, entry.Location)
	}
	return nil
}

// Resolve returns the location of the most specific network containing `ip`,
// or the zero Location when none matches.
func (r *TableResolver) Resolve(ip net.IP) Location {
	var (
		tags []uint8
		err  error
	)
	everything := func(uint8) bool { return true }
	if stdIPv4 := ip.To4(); stdIPv4 != nil {
		if r.treeV4 == nil {
			return Location{}
		}
		addr := patricia.NewIPv4AddressFromBytes(stdIPv4, ipv4Bits)
		tags, err = r.treeV4.FindTagsWithFilter(addr, everything)
	} else if stdIPv6 := ip.To16(); stdIPv6 != nil {
		// warning: the previous condition is also true with an ipv4 address (as
		// they can be represented using ipv6 ::ffff:ipv4), so testing the ipv4
		// first is important to avoid entering this case with ipv4 addresses.
		if r.treeV6 == nil {
			return Location{}
		}
		addr := patricia.NewIPv6Address(stdIPv6, ipv6Bits)
		tags, err = r.treeV6.FindTagsWithFilter(addr, everything)
	}
	if err != nil || len(tags) == 0 {
		return Location{}
	}
	// Returned tags are ordered by matching prefix length, ie. the right-most
	// is the deepest match.
	return r.locations[tags[len(tags)-1]]
}
