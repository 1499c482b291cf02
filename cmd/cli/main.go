package main

import "github.com/dmitrijs2005/honeykeeper/internal/admin"

func main() {
	admin.Main()
}
