// Command migrator drives an Oracle schema through discovery, translation,
// deployment, and repair onto a SQL Server target.
package main

func main() {
	Execute()
}
