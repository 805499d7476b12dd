/*
Package dsl provides a Go DSL for programmatically constructing automation units.

It builds the same domain.Unit a YAML or JSON unit file decodes to, using a fluent
builder instead. This is useful for generated units, tests and IDE-checked flows.

Example usage:

	b := dsl.New("login").Name("Log in").Boundary(0, 0, 1280, 800)

	b.Add("focus").Click(640, 120).Go("user")
	b.Add("user").Type("alice").Go("submit")
	b.Add("submit").Key("enter").Go("check")
	b.Add("check").IfImage("welcome.png").Then("done").Else("retry")
	b.Add("retry").Wait(2).Go("submit")
	b.Add("done").Wait(0.5)

	unit, err := b.Build()
*/
package dsl
