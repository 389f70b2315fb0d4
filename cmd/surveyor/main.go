// Surveyor - Cloud Resource Discovery Engine
// Scan. Dedup. Inventory.
package main

func main() {
	Execute()
}
