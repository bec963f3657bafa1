// Package filter implements the LDAP-style filter language used for
// requirement matching and registry queries.
//
// A filter is parsed once into an immutable tree of [Node] values and can
// then be evaluated any number of times against a [value.PropertyMap]:
//
//	f, err := filter.Parse("(&(objectClass=com.example.Log)(level>=3))")
//	if err != nil {
//	    return err
//	}
//	ok := f.Matches(props)
//
// Operand text is never typed at parse time. Each comparison coerces its
// operand into the kind of the property it is compared against, and a
// failed coercion makes only that comparison false. Syntax errors, in
// contrast, are always reported as a *[SyntaxError].
//
// Two filters are equal when their canonical renderings are identical.
// The canonical form lower-cases attribute names and drops insignificant
// white space, so "(  Name=x)" and "(name\t=x)" are equal.
package filter
