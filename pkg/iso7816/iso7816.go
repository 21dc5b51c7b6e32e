/*
Package iso7816 builds and interprets the APDUs exchanged with a secure element.

It covers command and response encoding (ISO/IEC 7816-3 cases 1 to 4, short and
extended lengths), status word classification, the CLA and INS bytes including
the GlobalPlatform proprietary class, SELECT and the File Control Information
it returns.

# Transmitters

A Client runs one logical command over a Transmitter, which is anything that
sends a complete C-APDU and returns the complete R-APDU. An ese.Session is a
Transmitter: it splits the command into link frames and returns the response of
the final frame.

	client := iso7816.NewClient(session)
	trace, err := client.Send(iso7816.SelectByAID(iso7816.BasicClass, aid))
	if err != nil {
	    return err
	}
	if !trace.IsSuccess() {
	    return fmt.Errorf("select: %s", trace.Status().Verbose())
	}
	data := trace.Data()

# Status words

  - 9000: success.
  - 61XX: success, XX more bytes wait for GET RESPONSE. The Client fetches them.
  - 6CXX: wrong Le, XX is the right one. The Client re-sends the command.
  - anything else ends the exchange and is reported as is.
*/
package iso7816
