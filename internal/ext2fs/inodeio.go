package ext2fs

// GetInode reads inode n by number alone, resolving its owning group
// descriptor first. Convenience wrapper over ReadGroupDesc+ReadInode
// for callers that only have an inode number in hand.
func GetInode(dev *Device, sb *Superblock, n uint32) (*Inode, error) {
	g := groupOfInode(n, sb.InodesPerGroup)
	gd, err := ReadGroupDesc(dev, sb, g)
	if err != nil {
		return nil, err
	}
	return ReadInode(dev, sb, gd, n)
}

// PutInode writes inode n by number alone.
func PutInode(dev *Device, sb *Superblock, n uint32, in *Inode) error {
	g := groupOfInode(n, sb.InodesPerGroup)
	gd, err := ReadGroupDesc(dev, sb, g)
	if err != nil {
		return err
	}
	return WriteInode(dev, sb, gd, n, in)
}
